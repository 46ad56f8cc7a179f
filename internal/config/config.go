// Package config loads process configuration from the environment and an
// optional .env file.
package config

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"authcore/internal/token"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrConfigurationMissing wraps the list of required variables that are unset.
	ErrConfigurationMissing = errors.New("configuration missing")
	// ErrInvalidConfiguration wraps values that are present but unusable.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// Config is the full set of settings read at startup.
type Config struct {
	MongoURI     string `env:"MONGO_URI,required,notEmpty"`
	DatabaseName string `env:"DATABASE_NAME,required,notEmpty"`
	AppEnv       string `env:"APP_ENV,required,notEmpty"`
	Debug        bool   `env:"DEBUG,required"`

	// Both secrets are base64 encoded.
	SecretKey        string `env:"SECRET_KEY,required,notEmpty"`
	RefreshSecretKey string `env:"REFRESH_SECRET_KEY,required,notEmpty"`

	AccessTokenExpireMinutes int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES" envDefault:"30"`
	RefreshTokenExpireDays   int    `env:"REFRESH_TOKEN_EXPIRE_DAYS" envDefault:"7"`
	JWTAlgorithm             string `env:"JWT_ALGORITHM" envDefault:"HS256"`

	BcryptCost   int           `env:"BCRYPT_COST" envDefault:"12"`
	StoreTimeout time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`

	Host string `env:"HOST" envDefault:"127.0.0.1"`
	Port string `env:"PORT" envDefault:"3010"`

	CORSOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	accessSecret  []byte
	refreshSecret []byte
	method        jwt.SigningMethod
}

// Load reads .env (if present) into the process environment and parses it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return parse(env.Options{})
}

// FromMap parses configuration from vars instead of the process environment.
func FromMap(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigurationMissing, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	var err error
	if c.accessSecret, err = decodeSecret("SECRET_KEY", c.SecretKey); err != nil {
		errs = append(errs, err)
	}
	if c.refreshSecret, err = decodeSecret("REFRESH_SECRET_KEY", c.RefreshSecretKey); err != nil {
		errs = append(errs, err)
	}
	if c.accessSecret != nil && c.refreshSecret != nil && bytes.Equal(c.accessSecret, c.refreshSecret) {
		errs = append(errs, errors.New("SECRET_KEY and REFRESH_SECRET_KEY must differ"))
	}
	if c.AccessTokenExpireMinutes <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_EXPIRE_MINUTES must be positive"))
	}
	if c.RefreshTokenExpireDays <= 0 {
		errs = append(errs, errors.New("REFRESH_TOKEN_EXPIRE_DAYS must be positive"))
	}
	if c.method, err = token.Method(c.JWTAlgorithm); err != nil {
		errs = append(errs, fmt.Errorf("JWT_ALGORITHM: %w", err))
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be within [%d, %d]", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.StoreTimeout <= 0 {
		errs = append(errs, errors.New("STORE_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

func decodeSecret(name, value string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return nil, fmt.Errorf("%s is not valid base64: %w", name, err)
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("%s decodes to an empty secret", name)
	}
	return b, nil
}

// AccessSecret is the decoded access-token signing secret.
func (c *Config) AccessSecret() []byte { return c.accessSecret }

// RefreshSecret is the decoded refresh-token signing secret.
func (c *Config) RefreshSecret() []byte { return c.refreshSecret }

// SigningMethod is the JWT algorithm for both token kinds.
func (c *Config) SigningMethod() jwt.SigningMethod { return c.method }

// AccessTokenTTL is the lifetime of access tokens.
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}

// RefreshTokenTTL is the lifetime of refresh tokens.
func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenExpireDays) * 24 * time.Hour
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}
