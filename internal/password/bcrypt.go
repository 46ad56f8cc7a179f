// Package password hashes and verifies plaintext passwords with bcrypt.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxLength is the longest password bcrypt accepts, in bytes.
const MaxLength = 72

// DefaultCost keeps an interactive login in the tens of milliseconds.
const DefaultCost = 12

// ErrTooLong is returned by Hash for passwords over MaxLength bytes.
var ErrTooLong = errors.New("password exceeds 72 bytes")

// Hasher hashes passwords at a fixed bcrypt cost. It holds a hash of a fixed
// string at the same cost so that a lookup miss can pay for a comparison too.
type Hasher struct {
	cost  int
	dummy []byte
}

// NewHasher returns a Hasher for the given cost. Costs outside bcrypt's
// range are rejected.
func NewHasher(cost int) (*Hasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), cost)
	if err != nil {
		return nil, fmt.Errorf("generate dummy hash: %w", err)
	}
	return &Hasher{cost: cost, dummy: dummy}, nil
}

// Cost reports the bcrypt cost used for new hashes.
func (h *Hasher) Cost() int { return h.cost }

// Hash returns the salted bcrypt hash of plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxLength {
		return "", ErrTooLong
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// Verify reports whether plaintext matches hash. A malformed hash never matches.
func (h *Hasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// VerifyDummy runs a full comparison against the built-in hash and always
// reports false.
func (h *Hasher) VerifyDummy(plaintext string) bool {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plaintext))
	return false
}
