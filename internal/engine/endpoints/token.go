package endpoints

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
)

const (
	tokenBytes  = 16
	secretBytes = 32
	maxRetries  = 5
)

var ErrTokenExhausted = errors.New("failed to generate unique endpoint token")

type TokenAvailabilityChecker interface {
	ExistsByToken(ctx context.Context, token string) (bool, error)
}

// GenerateToken returns a fresh 32-char hex path segment that no existing
// webhook uses.
func GenerateToken(ctx context.Context, checker TokenAvailabilityChecker) (string, error) {
	for i := 0; i < maxRetries; i++ {
		token, err := randomHex(tokenBytes)
		if err != nil {
			return "", err
		}

		exists, err := checker.ExistsByToken(ctx, token)
		if err != nil {
			return "", err
		}
		if !exists {
			return token, nil
		}
	}
	return "", ErrTokenExhausted
}

func GenerateSecret() (string, error) {
	return randomHex(secretBytes)
}

// IsValidToken reports whether s has the shape of a generated token, so
// obviously bogus paths never reach the store.
func IsValidToken(s string) bool {
	if len(s) != tokenBytes*2 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
