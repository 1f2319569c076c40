package auth

import (
	"sort"
	"sync"
	"time"

	"github.com/marwanhub/factories-server/internal/hash"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is the stored identity record. Password material never leaves the
// store; external callers only ever see UserSummary copies.
type User struct {
	Username     string
	PasswordHash string
	Salt         string
	Email        string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
}

type UserSummary struct {
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserStore holds user records in memory behind a single RWMutex.
type UserStore struct {
	mu          sync.RWMutex
	users       map[string]*User
	minPassLen  int
	dummyDigest string
	dummySalt   string
}

func NewUserStore(minPasswordLength int) (*UserStore, error) {
	// The dummy digest feeds the unknown-user path in Authenticate so a
	// miss costs the same KDF work as a wrong password.
	digest, salt, err := hash.HashPassword("decoy-credential")
	if err != nil {
		return nil, err
	}
	return &UserStore{
		users:       make(map[string]*User),
		minPassLen:  minPasswordLength,
		dummyDigest: digest,
		dummySalt:   salt,
	}, nil
}

// Register creates a new user with a fresh salt. The existence check and the
// insert happen under one lock, so concurrent registrations for the same
// username cannot both succeed.
func (s *UserStore) Register(username, password, email, role string) error {
	if role == "" {
		role = RoleUser
	}
	if len(password) < s.minPassLen {
		return ErrPasswordTooShort
	}

	digest, salt, err := hash.HashPassword(password)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; ok {
		return ErrUserExists
	}
	s.users[username] = &User{
		Username:     username,
		PasswordHash: digest,
		Salt:         salt,
		Email:        email,
		Role:         role,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
	return nil
}

// Authenticate checks username/password. Unknown users and wrong passwords
// both come back as ErrInvalidCredentials so callers cannot enumerate
// usernames.
func (s *UserStore) Authenticate(username, password string) (UserSummary, error) {
	s.mu.RLock()
	u, ok := s.users[username]
	var digest, salt string
	var summary UserSummary
	var active bool
	if ok {
		digest, salt, active = u.PasswordHash, u.Salt, u.IsActive
		summary = u.summary()
	}
	s.mu.RUnlock()

	if !ok {
		hash.CheckPassword(password, s.dummyDigest, s.dummySalt)
		return UserSummary{}, ErrInvalidCredentials
	}
	if !active {
		return UserSummary{}, ErrAccountInactive
	}
	if !hash.CheckPassword(password, digest, salt) {
		return UserSummary{}, ErrInvalidCredentials
	}
	return summary, nil
}

// Deactivate soft-deletes a user; authentication fails afterwards even with
// correct credentials.
func (s *UserStore) Deactivate(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return ErrInvalidCredentials
	}
	u.IsActive = false
	return nil
}

func (s *UserStore) SetRole(username, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return ErrInvalidCredentials
	}
	u.Role = role
	return nil
}

// Export returns all users ordered by username, without password material.
func (s *UserStore) Export() []UserSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]UserSummary, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u.summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

func (s *UserStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

func (s *UserStore) RolesDistribution() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dist := make(map[string]int)
	for _, u := range s.users {
		dist[u.Role]++
	}
	return dist
}

func (u *User) summary() UserSummary {
	return UserSummary{
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}
