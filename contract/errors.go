package contract

import (
	"errors"
	"fmt"
)

var (
	// ErrIncompleteContract is matched by every *IncompleteError.
	ErrIncompleteContract = errors.New("contract: incomplete contract")

	// ErrDuplicateSigner is returned when a signer with the same identity
	// hash is added twice.
	ErrDuplicateSigner = errors.New("contract: duplicate signer")

	// ErrUnknownSigner is returned by Correlate for a hash that was never
	// added to the request.
	ErrUnknownSigner = errors.New("contract: unknown signer")
)

// IncompleteError names the first missing precondition found by Build.
type IncompleteError struct {
	Field string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("contract: incomplete contract: %s is required", e.Field)
}

// Is reports whether target is ErrIncompleteContract.
func (e *IncompleteError) Is(target error) bool {
	return target == ErrIncompleteContract
}
