package storage

import (
	"crypto/sha256"
	"encoding/hex"
)

// TokenHash is the key under which a revoked token is stored.
func TokenHash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
