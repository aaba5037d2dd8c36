package sender

import "errors"

var (
	// ErrSignerMismatch is carried by Failed when the response names a
	// signer that was not in the request.
	ErrSignerMismatch = errors.New("sender: response signer does not match request")

	// ErrBadResponse is carried by Failed when a 200 response cannot be
	// parsed.
	ErrBadResponse = errors.New("sender: malformed provider response")

	// ErrNoToken is returned by New for an empty token.
	ErrNoToken = errors.New("sender: token is required")
)
