package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// CalculateStringSHA256 computes the SHA-256 hash of a string.
func CalculateStringSHA256(content string) string {
	hash := sha256.New()
	hash.Write([]byte(content))
	return hex.EncodeToString(hash.Sum(nil))
}

// ShortStringHash returns the first n hex characters of the string's SHA-256.
// Stable across processes, unlike a seeded map hash.
func ShortStringHash(content string, n int) string {
	full := CalculateStringSHA256(content)
	if n <= 0 || n > len(full) {
		return full
	}
	return full[:n]
}
