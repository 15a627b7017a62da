package session

import (
	"crypto/rand"
	"math/big"
)

// KeyLength is the length of generated session keys.
const KeyLength = 32

const keyAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// KeyGenerator produces candidate session keys for creation.
type KeyGenerator func() (string, error)

// RandomKey returns KeyLength characters drawn uniformly from [a-z0-9].
func RandomKey() (string, error) {
	max := big.NewInt(int64(len(keyAlphabet)))
	b := make([]byte, KeyLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = keyAlphabet[n.Int64()]
	}
	return string(b), nil
}
