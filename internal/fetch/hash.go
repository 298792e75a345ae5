package fetch

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const hashPrefix = "sha256:"

// HashContent computes the SHA-256 of data as "sha256:<hex>".
func HashContent(data []byte) string {
	h := sha256.Sum256(data)
	return hashPrefix + hex.EncodeToString(h[:])
}

// ParseHash splits a "sha256:<hex>" reference and returns the hex part.
func ParseHash(ref string) (string, error) {
	if !strings.HasPrefix(ref, hashPrefix) {
		return "", fmt.Errorf("invalid hash reference: expected %s prefix, got %q", hashPrefix, ref)
	}
	hexStr := ref[len(hashPrefix):]
	if len(hexStr) != 64 {
		return "", fmt.Errorf("invalid hash reference: expected 64 hex chars, got %d", len(hexStr))
	}
	if _, err := hex.DecodeString(hexStr); err != nil {
		return "", fmt.Errorf("invalid hash reference: bad hex encoding: %w", err)
	}
	return hexStr, nil
}

// URLKey is the cache key of a URL: the hash of the URL text itself.
func URLKey(url string) string {
	return HashContent([]byte(url))
}
