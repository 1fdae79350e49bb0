package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
)

// Raw byte sizes of the opaque tokens handed to users. Hex encoding doubles
// the visible length.
const (
	VerificationTokenBytes = 40
	RefreshTokenBytes      = 40
	ResetTokenBytes        = 70
)

var errTokenSize = errors.New("invalid token size")

// NewOpaqueToken returns n bytes from crypto/rand, hex encoded.
func NewOpaqueToken(n int) (string, error) {
	if n <= 0 {
		return "", errTokenSize
	}
	raw := make([]byte, n)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

// HashToken is the deterministic digest stored in place of a bearer secret.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// TokenEqual compares two secrets without leaking timing on content.
func TokenEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
