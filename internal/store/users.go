// Package store implements the credential store on top of MongoDB.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"authcore/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrNotFound is returned when no user matches a lookup.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned by Create when the email is already taken.
	ErrDuplicateEmail = errors.New("email already exists")
)

// DefaultTimeout bounds every individual call to the database.
const DefaultTimeout = 5 * time.Second

// Users is the MongoDB-backed credential store. Every call hits the
// collection; nothing is cached.
type Users struct {
	col     *mongo.Collection
	timeout time.Duration
}

// NewUsers returns a store over the given users collection. A non-positive
// timeout falls back to DefaultTimeout.
func NewUsers(col *mongo.Collection, timeout time.Duration) *Users {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Users{col: col, timeout: timeout}
}

// FindByEmail looks a user up by email.
func (s *Users) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

// FindByID looks a user up by its hex object id. A malformed id is a miss.
func (s *Users) FindByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

func (s *Users) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var user models.User
	err := s.col.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error retrieving user: %w", err)
	}
	return &user, nil
}

// Create inserts u and returns it with its id and timestamps set.
func (s *Users) Create(ctx context.Context, u *models.User) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := time.Now().UTC()
	created := *u
	if created.ID.IsZero() {
		created.ID = primitive.NewObjectID()
	}
	created.CreatedAt = now
	created.UpdatedAt = now

	if _, err := s.col.InsertOne(ctx, created); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("error inserting user: %w", err)
	}
	return &created, nil
}

// SaveRefreshToken overwrites the stored refresh token of the user.
func (s *Users) SaveRefreshToken(ctx context.Context, userID, token string) error {
	return s.update(ctx, userID, bson.M{
		"$set": bson.M{"refresh_token": token, "updated_at": time.Now().UTC()},
	}, true)
}

// GetRefreshToken returns the stored refresh token of the user, or "" when
// none is stored.
func (s *Users) GetRefreshToken(ctx context.Context, userID string) (string, error) {
	u, err := s.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.RefreshToken, nil
}

// RevokeRefreshToken clears the stored refresh token. Revoking an absent
// token, or the token of an unknown user, is not an error.
func (s *Users) RevokeRefreshToken(ctx context.Context, userID string) error {
	return s.update(ctx, userID, bson.M{
		"$unset": bson.M{"refresh_token": ""},
		"$set":   bson.M{"updated_at": time.Now().UTC()},
	}, false)
}

// RecordLogin stamps a successful login and resets the failure counter.
func (s *Users) RecordLogin(ctx context.Context, userID string, at time.Time) error {
	return s.update(ctx, userID, bson.M{
		"$set": bson.M{"last_login": at, "failed_log_attempts": 0, "updated_at": at},
	}, true)
}

// RecordFailedLogin stamps a failed login and increments the failure counter.
func (s *Users) RecordFailedLogin(ctx context.Context, userID string, at time.Time) error {
	return s.update(ctx, userID, bson.M{
		"$set": bson.M{"last_failed_login": at, "updated_at": at},
		"$inc": bson.M{"failed_log_attempts": 1},
	}, true)
}

func (s *Users) update(ctx context.Context, userID string, update bson.M, mustMatch bool) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		if mustMatch {
			return ErrNotFound
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("error updating user: %w", err)
	}
	if mustMatch && res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
