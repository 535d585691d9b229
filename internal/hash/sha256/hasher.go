// Package sha256 provides SHA-256 digests for content fingerprinting.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher computes hex SHA-256 digests.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash hashes the input and returns a hex digest.
func (h *Hasher) Hash(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// HashFields joins fields with a NUL separator and hashes the result. Using a
// separator that cannot appear in normalized text keeps ("ab","c") distinct
// from ("a","bc").
func (h *Hasher) HashFields(fields ...string) (string, error) {
	joined := make([]byte, 0, 64)
	for i, f := range fields {
		if i > 0 {
			joined = append(joined, 0)
		}
		joined = append(joined, f...)
	}
	return h.Hash(joined)
}
