package common

import (
	"crypto/rand"
	"encoding/hex"
)

// MakeRandHexString generates a hex string of size random bytes (so the
// string itself is twice as long). It is used where the pipeline needs an
// unpredictable placeholder value, e.g. a fingerprint for a file whose
// bytes could not be read.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
