// Package auth contains API key handling helpers.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// HashKey returns a SHA-256 hash of the key.
// Only the hash is ever stored; the raw key is shown once at creation.
func HashKey(key string) string {
	key = strings.TrimSpace(key)

	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// NewKey generates a random API key with a recognizable prefix.
func NewKey() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate api key: %w", err)
	}
	return "cpk_" + hex.EncodeToString(buf), nil
}
