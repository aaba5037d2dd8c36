package metadata

import "errors"

var (
	// ErrInvalidArgument is returned when a key, tag or value cannot be
	// encoded.
	ErrInvalidArgument = errors.New("metadata: invalid argument")

	// ErrMalformedMetadata is returned when an encoded string cannot be
	// decoded.
	ErrMalformedMetadata = errors.New("metadata: malformed metadata")

	// ErrTypeMismatch is returned by the typed getters when the stored
	// value has a different type.
	ErrTypeMismatch = errors.New("metadata: type mismatch")

	// ErrTagNotFound is returned by the typed getters for an absent tag.
	ErrTagNotFound = errors.New("metadata: tag not found")
)
