package shared

import (
	"crypto/rand"
	"encoding/hex"
)

// TokenGenerator produces opaque, unguessable tokens used as playlist share links.
type TokenGenerator interface {
	NewOpaqueToken() string
}

// RandomTokens is the default [TokenGenerator], backed by crypto/rand.
type RandomTokens struct{}

// NewOpaqueToken returns 32 random bytes hex-encoded (256 bits of entropy).
func (RandomTokens) NewOpaqueToken() string {
	b := make([]byte, 32)
	// rand.Read never returns an error as of Go 1.24.
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
