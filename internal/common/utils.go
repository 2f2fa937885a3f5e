package common

import (
	"crypto/rand"
	"encoding/hex"
)

// MakeRandHexString generates a random hexadecimal string from size random
// bytes (so the string is twice as long). Used for opaque refresh tokens.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// WipeByteArray overwrites the contents of the provided byte slice with
// zeros. Used for passwords and key material after use. A nil slice is a
// no-op.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
