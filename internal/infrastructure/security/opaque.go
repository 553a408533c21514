package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"

	"github.com/baechuer/storefront-auth/internal/domain"
)

// minOpaqueBytes is 256 bits of entropy.
const minOpaqueBytes = 32

// OpaqueTokens mints refresh and verification tokens. Only the SHA-256
// fingerprint of a token is ever stored; the raw value goes back to the
// caller once.
type OpaqueTokens struct {
	bytesLen int
}

func NewOpaqueTokens(bytesLen int) *OpaqueTokens {
	if bytesLen < minOpaqueBytes {
		bytesLen = minOpaqueBytes
	}
	return &OpaqueTokens{bytesLen: bytesLen}
}

// Generate returns a URL-safe random token.
func (o *OpaqueTokens) Generate() (string, error) {
	b := make([]byte, o.bytesLen)
	if _, err := rand.Read(b); err != nil {
		return "", domain.ErrRandomFailed(err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Fingerprint is keyless and deterministic so it can serve as a lookup key.
func (o *OpaqueTokens) Fingerprint(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
