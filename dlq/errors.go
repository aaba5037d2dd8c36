package dlq

import "errors"

// ErrNotFound is returned when a poison entry cannot be found. The root
// package exports it as esignatures.ErrPoisonNotFound.
var ErrNotFound = errors.New("esignatures: poison entry not found")
