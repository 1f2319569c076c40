package auth

import (
	"context"
	"errors"
	"time"

	"github.com/marwanhub/factories-server/internal/logging"
)

// Controller composes the credential store and the session registry behind
// the operations the transport layer calls.
type Controller struct {
	Users    *UserStore
	Sessions *SessionRegistry
}

type LoginResult struct {
	Token     string      `json:"session_token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      UserSummary `json:"user"`
}

type Stats struct {
	TotalUsers        int            `json:"total_users"`
	ActiveSessions    int            `json:"active_sessions"`
	RolesDistribution map[string]int `json:"roles_distribution"`
}

// Login authenticates the credentials and mints a session on success.
// Credential-store errors pass through untouched.
func (c *Controller) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login", "username", username)

	user, err := c.Users.Authenticate(username, password)
	if err != nil {
		l.Warn("login_failed", "reason", err.Error())
		return nil, err
	}

	token, expiresAt, err := c.Sessions.Create(user.Username, user.Role)
	if err != nil {
		l.Error("session_create_failed", "error", err)
		return nil, err
	}

	l.Info("login_successful", "role", user.Role)
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Logout revokes the session. A second logout of the same token reports
// ErrSessionNotFound.
func (c *Controller) Logout(ctx context.Context, token string) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout")
	if err := c.Sessions.Revoke(token); err != nil {
		l.Warn("logout_failed", "reason", err.Error())
		return err
	}
	l.Info("logout_successful")
	return nil
}

// Authorize validates (and renews) the session, then applies the exact-match
// role check. The renewal sticks even when the role check fails: the session
// is genuine, only the operation is denied.
func (c *Controller) Authorize(ctx context.Context, token, requiredRole string) (SessionInfo, error) {
	info, err := c.Sessions.Validate(token)
	if err != nil {
		return SessionInfo{}, err
	}
	if requiredRole != "" && info.Role != requiredRole {
		logging.FromContext(ctx).Warn("authorization_denied",
			"svc", "auth.authorize", "username", info.Username,
			"role", info.Role, "required_role", requiredRole)
		return SessionInfo{}, ErrForbidden
	}
	return info, nil
}

// Stats aggregates over both stores. Gating the exposure of these numbers is
// the caller's job (Authorize with RoleAdmin).
func (c *Controller) Stats() Stats {
	return Stats{
		TotalUsers:        c.Users.Count(),
		ActiveSessions:    c.Sessions.Count(),
		RolesDistribution: c.Users.RolesDistribution(),
	}
}

// IsAuthError reports whether err is one of the expected auth outcomes, as
// opposed to an infrastructure failure.
func IsAuthError(err error) bool {
	for _, known := range []error{
		ErrUserExists, ErrInvalidCredentials, ErrAccountInactive,
		ErrPasswordTooShort, ErrInvalidToken, ErrSessionExpired,
		ErrSessionNotFound, ErrForbidden,
	} {
		if errors.Is(err, known) {
			return true
		}
	}
	return false
}
