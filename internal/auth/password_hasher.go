package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for password hashing
	BcryptCost = 12
	// MinPasswordLength is the minimum accepted password length
	MinPasswordLength = 8
)

// PasswordHasher wraps salted adaptive one-way hashing. Equal inputs never
// produce equal outputs because bcrypt salts every call.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher creates a PasswordHasher with the default cost
func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{cost: BcryptCost}
}

// Hash creates a bcrypt hash of the plaintext
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify compares plaintext against a stored hash. A mismatch is reported as
// false with a nil error; a non-nil error means the stored hash itself is
// malformed, which is a configuration problem, never a user-facing one.
func (h *PasswordHasher) Verify(plaintext, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("malformed password hash: %w", err)
}
