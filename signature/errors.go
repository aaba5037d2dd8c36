package signature

import "errors"

var (
	// ErrNoAuthorization is returned when the Authorization header is absent.
	ErrNoAuthorization = errors.New("signature: no authorization")

	// ErrAuthRejected is returned for a malformed header or a wrong secret.
	ErrAuthRejected = errors.New("signature: bad authorization")

	// ErrUnusableSecret is returned by CheckSecret for a secret that cannot
	// travel as a Basic user name.
	ErrUnusableSecret = errors.New("signature: secret must not contain ':'")
)
