package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashKey returns a stable hex digest of s, safe to write to logs in place of
// a session identifier.
func HashKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// ShortHash returns the first 12 hex characters of HashKey(s).
func ShortHash(s string) string {
	if s == "" {
		return ""
	}
	return HashKey(s)[:12]
}
