package signature

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateSecret creates a random shared secret suitable for the provider's
// webhook credentials: 24 random bytes rendered as 48 hex characters.
func GenerateSecret() string {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		panic("esignatures: failed to generate random secret: " + err.Error())
	}
	return hex.EncodeToString(b)
}
