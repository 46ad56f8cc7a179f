// Package memstore is an in-process credential store with the same contract
// as the MongoDB store. Tests use it where a live database is not wanted.
package memstore

import (
	"context"
	"sync"
	"time"

	"authcore/internal/models"
	"authcore/internal/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store keeps users in memory, keyed by hex id. Email uniqueness is
// enforced the same way the unique index does it.
type Store struct {
	mu      sync.RWMutex
	byID    map[string]*models.User
	byEmail map[string]string
}

// New returns an empty store.
func New() *Store {
	return &Store{
		byID:    make(map[string]*models.User),
		byEmail: make(map[string]string),
	}
}

// Len reports how many users are stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// FindByEmail looks a user up by email.
func (s *Store) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	return clone(s.byID[id]), nil
}

// FindByID looks a user up by its hex object id.
func (s *Store) FindByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return clone(u), nil
}

// Create stores a copy of u with its id and timestamps set. A taken email
// fails with store.ErrDuplicateEmail.
func (s *Store) Create(_ context.Context, u *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[u.Email]; taken {
		return nil, store.ErrDuplicateEmail
	}
	created := clone(u)
	if created.ID.IsZero() {
		created.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	created.CreatedAt = now
	created.UpdatedAt = now

	id := created.ID.Hex()
	s.byID[id] = created
	s.byEmail[created.Email] = id
	return clone(created), nil
}

// SaveRefreshToken overwrites the stored refresh token of the user.
func (s *Store) SaveRefreshToken(_ context.Context, userID, token string) error {
	return s.mutate(userID, func(u *models.User) {
		u.RefreshToken = token
		u.UpdatedAt = time.Now().UTC()
	})
}

// GetRefreshToken returns the stored refresh token, or "" when none is stored.
func (s *Store) GetRefreshToken(_ context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[userID]
	if !ok {
		return "", store.ErrNotFound
	}
	return u.RefreshToken, nil
}

// RevokeRefreshToken clears the stored refresh token. Unknown users are a no-op.
func (s *Store) RevokeRefreshToken(_ context.Context, userID string) error {
	err := s.mutate(userID, func(u *models.User) {
		u.RefreshToken = ""
		u.UpdatedAt = time.Now().UTC()
	})
	if err == store.ErrNotFound {
		return nil
	}
	return err
}

// RecordLogin stamps a successful login and resets the failure counter.
func (s *Store) RecordLogin(_ context.Context, userID string, at time.Time) error {
	return s.mutate(userID, func(u *models.User) {
		u.LastLogin = &at
		u.FailedLogAttempts = 0
		u.UpdatedAt = at
	})
}

// RecordFailedLogin stamps a failed login and increments the failure counter.
func (s *Store) RecordFailedLogin(_ context.Context, userID string, at time.Time) error {
	return s.mutate(userID, func(u *models.User) {
		u.LastFailedLogin = &at
		u.FailedLogAttempts++
		u.UpdatedAt = at
	})
}

func (s *Store) mutate(userID string, fn func(u *models.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[userID]
	if !ok {
		return store.ErrNotFound
	}
	fn(u)
	return nil
}

func clone(u *models.User) *models.User {
	c := *u
	if u.TwoFactorBackupCodes != nil {
		c.TwoFactorBackupCodes = append([]string(nil), u.TwoFactorBackupCodes...)
	}
	return &c
}
