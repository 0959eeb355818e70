// Package secrets holds the security-sensitive primitives of the authority:
// URL-safe random tokens and bcrypt password hashing for sponsor apps.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	dErrors "sigil/pkg/domain-errors"
)

// Token byte lengths. The transaction token is long-lived and must be
// unguessable; the verification code is single-use, short-lived and
// rate-limited, so it stays short enough for a human to type.
const (
	TransactionTokenBytes = 20
	VerificationCodeBytes = 8
)

// RandomToken returns n crypto-random bytes encoded base64url without
// padding. A failure of the random source is returned as-is; callers must
// abort the operation rather than fall back to weaker randomness.
func RandomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Hash creates a bcrypt hash of the provided secret.
func Hash(secret string) (string, error) {
	if secret == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "secret cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "secret is too long")
		}
		return "", fmt.Errorf("could not hash secret: %w", err)
	}
	return string(hashed), nil
}

// Verify checks a plaintext secret against a bcrypt hash in constant time.
func Verify(secret, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return fmt.Errorf("could not verify secret: %w", err)
	}
	return nil
}
