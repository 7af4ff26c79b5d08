package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const rawTokenBytes = 32

// GenerateToken returns a fresh cryptographically random bearer secret.
// The caller sees it exactly once; only its digest is ever persisted.
func GenerateToken() (string, error) {
	b := make([]byte, rawTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// DigestToken computes the value stored as token_hash. Unlike password
// hashing it is deterministic: validation looks tokens up by exact digest
// match against the unique index, so the same input must always produce
// the same output.
func DigestToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
