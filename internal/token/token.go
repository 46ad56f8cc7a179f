// Package token signs and verifies the HMAC JWTs handed out to clients.
//
// Verify deliberately collapses every failure (bad signature, expiry,
// audience mismatch, malformed input) into a nil result: callers treat a
// token that cannot be decoded as no token at all.
package token

import (
	"errors"
	"fmt"
	"time"

	"authcore/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AudienceAPI is the audience stamped on access tokens.
const AudienceAPI = "api"

// Claims is the identity snapshot carried by both token kinds.
type Claims struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	IsStaff     bool   `json:"isStaff"`
	IsSuperuser bool   `json:"isSuperuser"`
	IsActive    bool   `json:"isActive"`
	IsLocked    bool   `json:"isLocked"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
	jwt.RegisteredClaims
}

// ForUser builds the claim payload for u, expiring at exp. A non-empty
// audience is added as the aud claim.
func ForUser(u *models.User, exp time.Time, audience string) Claims {
	c := Claims{
		Email:       u.Email,
		Name:        u.Name,
		IsStaff:     u.IsStaff,
		IsSuperuser: u.IsSuperuser,
		IsActive:    u.IsActive,
		IsLocked:    u.IsLocked,
		CreatedAt:   u.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:   u.UpdatedAt.Format(time.RFC3339Nano),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.Hex(),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	if audience != "" {
		c.Audience = jwt.ClaimStrings{audience}
	}
	return c
}

// WithID returns c carrying a fresh random token id.
func (c Claims) WithID() Claims {
	c.ID = uuid.NewString()
	return c
}

// Method resolves an HMAC algorithm name such as "HS256".
func Method(alg string) (jwt.SigningMethod, error) {
	m := jwt.GetSigningMethod(alg)
	if m == nil {
		return nil, fmt.Errorf("unknown signing algorithm %q", alg)
	}
	if _, ok := m.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("signing algorithm %q is not HMAC", alg)
	}
	return m, nil
}

// Sign encodes claims as a JWT signed with secret.
func Sign(claims Claims, secret []byte, method jwt.SigningMethod) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("empty signing secret")
	}
	if claims.ExpiresAt == nil {
		return "", errors.New("claims without expiry")
	}
	s, err := jwt.NewWithClaims(method, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

// Verify decodes tokenString and returns its claims, or nil when the token
// does not verify against secret and method, has expired, or (when audience
// is non-empty) was not issued for audience.
func Verify(tokenString string, secret []byte, method jwt.SigningMethod, audience string) *Claims {
	return verify(tokenString, secret, method, audience, nil)
}

func verify(tokenString string, secret []byte, method jwt.SigningMethod, audience string, now func() time.Time) *Claims {
	if tokenString == "" || len(secret) == 0 {
		return nil
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	if now != nil {
		opts = append(opts, jwt.WithTimeFunc(now))
	}

	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, opts...)
	if err != nil || !tok.Valid {
		return nil
	}
	return claims
}
