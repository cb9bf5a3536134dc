// Package cryptox holds the password-hashing primitives used by the auth
// core. Hashes embed their own salt, so a hash string is self-contained:
// storage keeps a single column and verification needs no extra input.
package cryptox

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptySecret is returned when an empty secret is offered for hashing.
var ErrEmptySecret = errors.New("empty secret")

// Hasher is the one-way hash contract consumed by the auth service.
type Hasher interface {
	// Hash derives a salted hash from secret. The salt is embedded in the
	// returned string.
	Hash(secret string) (string, error)

	// Verify reports whether secret matches the stored hash.
	Verify(secret string, hash string) bool
}

// BcryptHasher implements Hasher with bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher builds a hasher with the given cost. A cost below
// bcrypt.MinCost falls back to bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	b, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h *BcryptHasher) Verify(secret string, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
