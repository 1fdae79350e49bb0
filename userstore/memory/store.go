// Package memory is an in-process authflow.UserStore for development and
// tests. Data is lost when the process exits.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/MrEthical07/authflow"
	"github.com/google/uuid"
)

// Store is an authflow.UserStore backed by maps. It is safe for
// concurrent use and hands out copies, never its own records.
type Store struct {
	mu      sync.RWMutex
	byID    map[string]*authflow.User
	byEmail map[string]string
	now     func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		byID:    make(map[string]*authflow.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

// FindByEmail looks up the user stored under the normalized email.
func (s *Store) FindByEmail(_ context.Context, email string) (*authflow.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, authflow.ErrUserNotFound
	}
	return clone(s.byID[id]), nil
}

// FindByID looks up the user with the given id.
func (s *Store) FindByID(_ context.Context, id string) (*authflow.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, authflow.ErrUserNotFound
	}
	return clone(u), nil
}

// CountAll returns the number of stored users.
func (s *Store) CountAll(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.byID)), nil
}

// Create inserts a new user under a random UUID. The email index makes
// concurrent creates of the same address fail with ErrDuplicateEmail.
func (s *Store) Create(_ context.Context, in authflow.CreateUserInput) (*authflow.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[in.Email]; taken {
		return nil, authflow.ErrDuplicateEmail
	}

	now := s.now().UTC()
	u := &authflow.User{
		ID:                uuid.NewString(),
		Email:             in.Email,
		Name:              in.Name,
		PasswordHash:      in.PasswordHash,
		Role:              in.Role,
		VerificationToken: in.VerificationToken,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	s.byID[u.ID] = u
	s.byEmail[u.Email] = u.ID
	return clone(u), nil
}

// Save overwrites the stored copy of u and stamps UpdatedAt.
func (s *Store) Save(_ context.Context, u *authflow.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[u.ID]
	if !ok {
		return authflow.ErrUserNotFound
	}
	if current.Email != u.Email {
		if _, taken := s.byEmail[u.Email]; taken {
			return authflow.ErrDuplicateEmail
		}
		delete(s.byEmail, current.Email)
		s.byEmail[u.Email] = u.ID
	}

	u.UpdatedAt = s.now().UTC()
	s.byID[u.ID] = clone(u)
	return nil
}

func clone(u *authflow.User) *authflow.User {
	out := *u
	if u.VerifiedAt != nil {
		t := *u.VerifiedAt
		out.VerifiedAt = &t
	}
	if u.PasswordResetTokenExpiresAt != nil {
		t := *u.PasswordResetTokenExpiresAt
		out.PasswordResetTokenExpiresAt = &t
	}
	return &out
}
