// ABOUTME: Opaque random tokens for email verification and password reset links
// ABOUTME: 32 bytes from crypto/rand, hex encoded to 64 characters

package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const randomTokenBytes = 32

// GenerateToken returns 64 lowercase hex characters of fresh randomness.
func GenerateToken() (string, error) {
	b := make([]byte, randomTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
