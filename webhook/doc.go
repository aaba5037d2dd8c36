// Package webhook turns the signing provider's status callbacks into typed
// events.
//
// Every callback is a JSON object whose top-level "status" selects one of
// eight Kinds. Parse validates the envelope against a JSON Schema for that
// Kind, decodes the echoed metadata and returns the matching Event variant.
// Parse is pure and may be called any number of times on the same payload.
package webhook
