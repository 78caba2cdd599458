package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sha256Hex returns the hex SHA-256 of input.
func Sha256Hex(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// Fingerprint is a short, log-safe identifier for a secret such as a token.
func Fingerprint(secret string) string {
	if secret == "" {
		return ""
	}
	return Sha256Hex(secret)[:12]
}
