package oauth

import (
	"crypto/rand"
	"math/big"
)

const randomAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// randomString returns a cryptographically random alphanumeric string of the
// given length. Used for authorization codes (32 chars) and refresh tokens
// (64 chars).
func randomString(length int) string {
	max := big.NewInt(int64(len(randomAlphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails if the platform source is broken;
			// there is no sane way to continue issuing credentials.
			panic("oauth: crypto/rand unavailable: " + err.Error())
		}
		b[i] = randomAlphabet[n.Int64()]
	}
	return string(b)
}
