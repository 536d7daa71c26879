package auth

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordMismatch reports a failed credential check.
var ErrPasswordMismatch = errors.New("auth: password mismatch")

// PasswordVerifier checks a client credential against a stored hash. The
// hashing scheme is opaque to the core; implementations may run remote.
type PasswordVerifier interface {
	Verify(ctx context.Context, hash, password string) error
}

// BcryptVerifier verifies bcrypt hashes in process.
type BcryptVerifier struct{}

func (BcryptVerifier) Verify(_ context.Context, hash, password string) error {
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return ErrPasswordMismatch
	}
	return nil
}
