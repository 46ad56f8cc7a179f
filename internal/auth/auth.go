package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"authcore/internal/models"
	"authcore/internal/password"
	"authcore/internal/store"
	"authcore/internal/token"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pquerna/otp/totp"
)

// TokenTypeBearer is the token_type returned alongside issued tokens.
const TokenTypeBearer = "bearer"

// Issuer is the TOTP issuer recorded in provisioned two-factor secrets.
const Issuer = "authcore"

// UserStore is the credential store the service persists through.
// Lookups signal a miss with store.ErrNotFound.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, u *models.User) (*models.User, error)
	SaveRefreshToken(ctx context.Context, userID, token string) error
	GetRefreshToken(ctx context.Context, userID string) (string, error)
	RevokeRefreshToken(ctx context.Context, userID string) error
	RecordLogin(ctx context.Context, userID string, at time.Time) error
	RecordFailedLogin(ctx context.Context, userID string, at time.Time) error
}

// Hasher hashes and verifies passwords.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
	VerifyDummy(plaintext string) bool
}

// TokenConfig holds the two independent signing secrets and lifetimes.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Method        jwt.SigningMethod
}

// Tokens is the payload handed back by Login and Refresh. Refresh leaves
// RefreshToken empty.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
}

// Service implements registration, login, refresh and identity extraction.
type Service struct {
	users  UserStore
	hasher Hasher
	cfg    TokenConfig
	log    *slog.Logger
	now    func() time.Time
}

// NewService wires a Service. The access and refresh secrets must both be
// set and differ.
func NewService(users UserStore, hasher Hasher, cfg TokenConfig, log *slog.Logger) (*Service, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("auth: access and refresh secrets are required")
	}
	if subtle.ConstantTimeCompare(cfg.AccessSecret, cfg.RefreshSecret) == 1 {
		return nil, errors.New("auth: access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("auth: token lifetimes must be positive")
	}
	if cfg.Method == nil {
		cfg.Method = jwt.SigningMethodHS256
	}
	return &Service{
		users:  users,
		hasher: hasher,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}, nil
}

// NormalizeEmail trims and lower-cases an address before it touches the store.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a user and returns it without its password hash or
// two-factor material. The email pre-check gives a friendly error; the
// store's unique index is what actually prevents duplicates.
func (s *Service) Register(ctx context.Context, in models.UserCreate) (*models.User, error) {
	email := NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if err := validateRegistration(email, name, in.Password); err != nil {
		return nil, err
	}

	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		s.log.WarnContext(ctx, "email already registered", "email", email)
		return nil, ErrEmailAlreadyRegistered
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("error checking existing user: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	u := &models.User{
		Email:             email,
		Name:              name,
		HashedPassword:    hash,
		IsActive:          true,
		TwoFactorEnabled:  in.TwoFactorEnabled,
		PreferredLanguage: "en",
	}
	if in.TwoFactorEnabled {
		key, err := totp.Generate(totp.GenerateOpts{Issuer: Issuer, AccountName: email})
		if err != nil {
			return nil, fmt.Errorf("error generating OTP secret: %w", err)
		}
		u.TwoFactorSecret = key.Secret()
	}

	created, err := s.users.Create(ctx, u)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			s.log.WarnContext(ctx, "email already registered", "email", email)
			return nil, ErrEmailAlreadyRegistered
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	s.log.InfoContext(ctx, "user created", "user_id", created.ID.Hex())

	// Credential material stays in the store.
	created.HashedPassword = ""
	created.TwoFactorSecret = ""
	created.TwoFactorBackupCodes = nil
	created.RefreshToken = ""
	return created, nil
}

func validateRegistration(email, name, plaintext string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: invalid email format", ErrInvalidInput)
	}
	if plaintext == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	if len(plaintext) > password.MaxLength {
		return fmt.Errorf("%w: password exceeds %d bytes", ErrInvalidInput, password.MaxLength)
	}
	return nil
}

// Login checks credentials and issues an access/refresh token pair. Unknown
// emails and wrong passwords fail identically, and both pay for one bcrypt
// comparison. A wrong password also pays for one failed-login store write,
// which an unknown email cannot make.
func (s *Service) Login(ctx context.Context, email, plaintext string) (*Tokens, error) {
	email = NormalizeEmail(email)
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("error retrieving user: %w", err)
		}
		s.hasher.VerifyDummy(plaintext)
		s.log.WarnContext(ctx, "login failed", "email", email)
		return nil, ErrInvalidCredentials
	}

	userID := u.ID.Hex()
	if !s.hasher.Verify(plaintext, u.HashedPassword) {
		if err := s.users.RecordFailedLogin(ctx, userID, s.now().UTC()); err != nil {
			s.log.ErrorContext(ctx, "error recording failed login", "user_id", userID, "error", err)
		}
		s.log.WarnContext(ctx, "login failed", "email", email)
		return nil, ErrInvalidCredentials
	}

	access, err := s.issueAccess(u)
	if err != nil {
		return nil, err
	}
	refresh, err := s.issueRefresh(u)
	if err != nil {
		return nil, err
	}
	if err := s.users.SaveRefreshToken(ctx, userID, refresh); err != nil {
		return nil, fmt.Errorf("error saving refresh token: %w", err)
	}
	if err := s.users.RecordLogin(ctx, userID, s.now().UTC()); err != nil {
		s.log.ErrorContext(ctx, "error recording login", "user_id", userID, "error", err)
	}

	return &Tokens{AccessToken: access, RefreshToken: refresh, TokenType: TokenTypeBearer}, nil
}

// Refresh exchanges a refresh token for a new access token. The token must
// verify against the refresh secret and match the one stored for its user;
// it is not rotated.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	claims := token.Verify(refreshToken, s.cfg.RefreshSecret, s.cfg.Method, "")
	if claims == nil || claims.Subject == "" {
		s.log.DebugContext(ctx, "refresh token rejected", "reason", "undecodable")
		return nil, ErrInvalidRefreshToken
	}

	u, err := s.users.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("error retrieving user: %w", err)
	}

	stored, err := s.users.GetRefreshToken(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("error retrieving refresh token: %w", err)
	}
	if stored == "" || subtle.ConstantTimeCompare([]byte(stored), []byte(refreshToken)) != 1 {
		s.log.DebugContext(ctx, "refresh token rejected", "reason", "not current", "user_id", claims.Subject)
		return nil, ErrInvalidRefreshToken
	}

	access, err := s.issueAccess(u)
	if err != nil {
		return nil, err
	}
	return &Tokens{AccessToken: access, TokenType: TokenTypeBearer}, nil
}

// Revoke clears the stored refresh token of the user. Revoking twice is fine.
func (s *Service) Revoke(ctx context.Context, userID string) error {
	if err := s.users.RevokeRefreshToken(ctx, userID); err != nil {
		return fmt.Errorf("error revoking refresh token: %w", err)
	}
	s.log.InfoContext(ctx, "refresh token revoked", "user_id", userID)
	return nil
}

// Authenticate resolves a bearer access token to the current user record.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	claims := token.Verify(accessToken, s.cfg.AccessSecret, s.cfg.Method, token.AudienceAPI)
	if claims == nil || claims.Email == "" {
		return nil, ErrUnauthenticated
	}
	u, err := s.users.FindByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("error retrieving user: %w", err)
	}
	return u, nil
}

func (s *Service) issueAccess(u *models.User) (string, error) {
	exp := s.now().Add(s.cfg.AccessTTL)
	tok, err := token.Sign(token.ForUser(u, exp, token.AudienceAPI), s.cfg.AccessSecret, s.cfg.Method)
	if err != nil {
		return "", fmt.Errorf("error generating access token: %w", err)
	}
	return tok, nil
}

func (s *Service) issueRefresh(u *models.User) (string, error) {
	exp := s.now().Add(s.cfg.RefreshTTL)
	tok, err := token.Sign(token.ForUser(u, exp, "").WithID(), s.cfg.RefreshSecret, s.cfg.Method)
	if err != nil {
		return "", fmt.Errorf("error generating refresh token: %w", err)
	}
	return tok, nil
}
