package webhook

import "errors"

var (
	// ErrUnrecognizedStatus is returned for a status outside the eight
	// known values.
	ErrUnrecognizedStatus = errors.New("webhook: unrecognized status")

	// ErrUnrecognizedSignerEvent is returned for a signer lifecycle string
	// outside the known vocabulary.
	ErrUnrecognizedSignerEvent = errors.New("webhook: unrecognized signer event")

	// ErrMalformedPayload is returned when the payload is not valid JSON,
	// fails the envelope schema, or carries an unparsable ID or timestamp.
	ErrMalformedPayload = errors.New("webhook: malformed payload")
)
