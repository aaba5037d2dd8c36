package signature

import (
	"crypto/subtle"
	"encoding/base64"
	"strings"
)

const basicScheme = "Basic "

// ParseBasic extracts the shared secret from a Basic Authorization header.
// Providers send the secret as the user name with an empty password, so a
// single trailing ':' is stripped. A secret ending in ':' therefore never
// matches; CheckSecret rejects such secrets up front.
func ParseBasic(header string) (string, error) {
	if header == "" {
		return "", ErrNoAuthorization
	}
	if len(header) < len(basicScheme) || !strings.EqualFold(header[:len(basicScheme)], basicScheme) {
		return "", ErrAuthRejected
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(header[len(basicScheme):]))
	if err != nil {
		return "", ErrAuthRejected
	}

	secret := strings.TrimSuffix(string(decoded), ":")
	if secret == "" {
		return "", ErrAuthRejected
	}
	return secret, nil
}

// CheckSecret reports whether secret can be carried as a Basic user name.
// RFC 7617 forbids ':' in the user-id.
func CheckSecret(secret string) error {
	if strings.Contains(secret, ":") {
		return ErrUnusableSecret
	}
	return nil
}

// Verify checks header against the expected secret in constant time.
func Verify(header, secret string) error {
	got, err := ParseBasic(header)
	if err != nil {
		return err
	}
	if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
		return ErrAuthRejected
	}
	return nil
}

// BasicHeader renders the Authorization header value a provider would send
// for secret.
func BasicHeader(secret string) string {
	return basicScheme + base64.StdEncoding.EncodeToString([]byte(secret+":"))
}
