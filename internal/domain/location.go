package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// NormalizeLocation trims the text, collapses internal whitespace runs to a
// single space, and lower-cases it.
func NormalizeLocation(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// DeriveKey returns the hex SHA-256 digest of the normalized location text.
// Two strings that differ only in case or whitespace run-length produce the
// same key. Empty input yields the digest of the empty string.
func DeriveKey(text string) string {
	sum := sha256.Sum256([]byte(NormalizeLocation(text)))
	return hex.EncodeToString(sum[:])
}

// CacheKey renders the identity of a cache slot as "provider:origin:destination".
// Key-value stores use it as their key; relational stores use the three
// columns directly.
func CacheKey(originHash, destinationHash string, provider ProviderID) string {
	return string(provider) + ":" + originHash + ":" + destinationHash
}
