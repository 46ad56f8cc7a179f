package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents a registered user as stored in the users collection.
type User struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty"`
	Email                string             `bson:"email"`
	Name                 string             `bson:"name"`
	HashedPassword       string             `bson:"hashed_password"`
	IsStaff              bool               `bson:"is_staff"`
	IsSuperuser          bool               `bson:"is_superuser"`
	IsActive             bool               `bson:"is_active"`
	IsLocked             bool               `bson:"is_locked"`
	CreatedAt            time.Time          `bson:"created_at"`
	UpdatedAt            time.Time          `bson:"updated_at"`
	LastLogin            *time.Time         `bson:"last_login,omitempty"`
	LastFailedLogin      *time.Time         `bson:"last_failed_login,omitempty"`
	FailedLogAttempts    int                `bson:"failed_log_attempts"`
	TwoFactorEnabled     bool               `bson:"two_factor_enabled"`
	TwoFactorSecret      string             `bson:"two_factor_secret,omitempty"`
	TwoFactorBackupCodes []string           `bson:"two_factor_backup_codes,omitempty"`
	PreferredLanguage    string             `bson:"preferred_language"`
	RefreshToken         string             `bson:"refresh_token,omitempty"`
}

// UserCreate carries the registration input.
type UserCreate struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	Name             string `json:"name"`
	TwoFactorEnabled bool   `json:"two_factor_enabled"`
}

// UserView is the public projection of a User. It never carries the
// password hash, the refresh token or two-factor material.
type UserView struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	Name              string     `json:"name"`
	IsStaff           bool       `json:"is_staff"`
	IsSuperuser       bool       `json:"is_superuser"`
	IsActive          bool       `json:"is_active"`
	IsLocked          bool       `json:"is_locked"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	LastLogin         *time.Time `json:"last_login"`
	TwoFactorEnabled  bool       `json:"two_factor_enabled"`
	PreferredLanguage string     `json:"preferred_language"`
}

// View returns the public projection of u.
func (u *User) View() UserView {
	return UserView{
		ID:                u.ID.Hex(),
		Email:             u.Email,
		Name:              u.Name,
		IsStaff:           u.IsStaff,
		IsSuperuser:       u.IsSuperuser,
		IsActive:          u.IsActive,
		IsLocked:          u.IsLocked,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
		LastLogin:         u.LastLogin,
		TwoFactorEnabled:  u.TwoFactorEnabled,
		PreferredLanguage: u.PreferredLanguage,
	}
}
