// Package id defines the TypeID identifiers used for queued webhook messages
// and poison entries.
//
// IDs are K-sortable (UUIDv7-based), so listing poison entries by ID lists
// them in failure order. The string form is "prefix_suffix".
package id

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix names the kind of record an ID belongs to.
type Prefix string

// Prefixes in use.
const (
	PrefixMessage Prefix = "msg"
	PrefixPoison  Prefix = "psn"
)

// ID wraps a TypeID. The zero value is Nil and renders as "".
type ID struct {
	tid typeid.TypeID
	ok  bool
}

// Nil is the zero-value ID.
var Nil ID

// New generates an ID with the given prefix. Only the package's own
// prefixes are passed here, so a generation failure panics.
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: generate %q: %v", prefix, err))
	}
	return ID{tid: tid, ok: true}
}

// NewMessageID generates a queue message ID.
func NewMessageID() ID { return New(PrefixMessage) }

// NewPoisonID generates a poison entry ID.
func NewPoisonID() ID { return New(PrefixPoison) }

// Parse accepts any well-formed TypeID, e.g. "msg_01h455vb4pex5vsknk084sn02q".
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse: empty string")
	}
	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}
	return ID{tid: tid, ok: true}, nil
}

// ParseWithPrefix parses s and requires the given prefix.
func ParseWithPrefix(s string, want Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}
	if got := parsed.Prefix(); got != want {
		return Nil, fmt.Errorf("id: %q has prefix %q, want %q", s, got, want)
	}
	return parsed, nil
}

// ParseMessageID parses a "msg" ID.
func ParseMessageID(s string) (ID, error) { return ParseWithPrefix(s, PrefixMessage) }

// ParsePoisonID parses a "psn" ID.
func ParsePoisonID(s string) (ID, error) { return ParseWithPrefix(s, PrefixPoison) }

// String returns "prefix_suffix", or "" for Nil.
func (i ID) String() string {
	if !i.ok {
		return ""
	}
	return i.tid.String()
}

// Prefix returns the prefix, or "" for Nil.
func (i ID) Prefix() Prefix {
	if !i.ok {
		return ""
	}
	return Prefix(i.tid.Prefix())
}

// IsNil reports whether i is the zero value.
func (i ID) IsNil() bool { return !i.ok }

// MarshalText implements encoding.TextMarshaler. Nil marshals to "".
func (i ID) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. "" yields Nil.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil
		return nil
	}
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}
