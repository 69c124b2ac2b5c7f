package render

import (
	"crypto/rand"
	"fmt"
)

const (
	nonceLength   = 32
	nonceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// NewNonce returns a 32-character alphanumeric token authorizing script
// execution for a single render. An attacker who cannot predict the nonce
// cannot smuggle a script tag past the CSP, so the randomness must be
// cryptographic.
func NewNonce() string {
	b := make([]byte, nonceLength)
	if _, err := rand.Read(b); err != nil {
		// If crypto/rand fails we must not fall back to weak randomness
		panic(fmt.Sprintf("crypto/rand failed: %v - cannot generate script nonce", err))
	}
	for i := range b {
		b[i] = nonceAlphabet[int(b[i])%len(nonceAlphabet)]
	}
	return string(b)
}
