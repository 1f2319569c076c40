package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"sync"
	"time"
)

// tokenBytes gives 256 bits of entropy per token, encoded base64url.
const tokenBytes = 32

type Session struct {
	Token     string
	Username  string
	Role      string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionInfo is the copy of session fields handed back to callers; the
// registry keeps exclusive ownership of the records themselves.
type SessionInfo struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionRegistry tracks active sessions in memory. Validation renews the
// sliding expiry window, so it counts as a write and runs under the same
// mutex as create/revoke. Expired sessions are deleted the first time a
// lookup finds them past their deadline.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	timeout  time.Duration

	now func() time.Time // swapped in tests
}

func NewSessionRegistry(timeout time.Duration) *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*Session),
		timeout:  timeout,
		now:      time.Now,
	}
}

// Create mints a session for username and returns its token and expiry.
// Collisions within the active set are rejected and regenerated, although at
// 256 bits they are not expected to occur.
func (r *SessionRegistry) Create(username, role string) (string, time.Time, error) {
	for {
		token, err := newToken()
		if err != nil {
			return "", time.Time{}, err
		}

		r.mu.Lock()
		if _, taken := r.sessions[token]; taken {
			r.mu.Unlock()
			continue
		}
		now := r.now()
		expiresAt := now.Add(r.timeout)
		r.sessions[token] = &Session{
			Token:     token,
			Username:  username,
			Role:      role,
			CreatedAt: now,
			ExpiresAt: expiresAt,
		}
		r.mu.Unlock()
		return token, expiresAt, nil
	}
}

// Validate looks up token, deletes it if expired, otherwise extends the
// expiry window and returns a copy of the session fields.
func (r *SessionRegistry) Validate(token string) (SessionInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[token]
	if !ok {
		return SessionInfo{}, ErrInvalidToken
	}
	now := r.now()
	if now.After(s.ExpiresAt) {
		delete(r.sessions, token)
		return SessionInfo{}, ErrSessionExpired
	}
	s.ExpiresAt = now.Add(r.timeout)
	return SessionInfo{Username: s.Username, Role: s.Role, ExpiresAt: s.ExpiresAt}, nil
}

// Revoke deletes the session. Revoking an already-revoked token reports
// ErrSessionNotFound so the caller can tell "already logged out" apart.
func (r *SessionRegistry) Revoke(token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[token]; !ok {
		return ErrSessionNotFound
	}
	delete(r.sessions, token)
	return nil
}

// Count reports tracked sessions, including expired ones not yet reaped.
func (r *SessionRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep removes sessions past their deadline and reports how many went.
func (r *SessionRegistry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	removed := 0
	for token, s := range r.sessions {
		if now.After(s.ExpiresAt) {
			delete(r.sessions, token)
			removed++
		}
	}
	return removed
}

// StartSweeper reaps expired sessions every interval until ctx is done.
// Lazy deletion on access already upholds the expiry invariant; the sweeper
// just keeps Count honest between accesses.
func (r *SessionRegistry) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Sweep()
			}
		}
	}()
}

func newToken() (string, error) {
	raw := make([]byte, tokenBytes)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", fmt.Errorf("session token generation: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
