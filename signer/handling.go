package signer

import (
	"fmt"

	"github.com/squideyes/esignatures/value"
)

// Mode is a delivery channel.
type Mode int

const (
	// ModeEmail delivers by email.
	ModeEmail Mode = iota
	// ModeSMS delivers by text message.
	ModeSMS
)

// String returns the wire name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeEmail:
		return "email"
	case ModeSMS:
		return "sms"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool { return m == ModeEmail || m == ModeSMS }

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("signer: unknown mode %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	mode, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// ParseMode parses "email" or "sms".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "email":
		return ModeEmail, nil
	case "sms":
		return ModeSMS, nil
	default:
		return 0, value.Invalid("mode", fmt.Sprintf("%q is not email or sms", s))
	}
}

// Handling controls signing order, delivery channels and the
// identification methods the provider requires of a signer.
type Handling struct {
	Ordinal    int  `json:"ordinal"`
	RequestBy  Mode `json:"request_by"`
	DocumentBy Mode `json:"document_by"`
	IDBySMS    bool `json:"id_by_sms"`
	IDByEmail  bool `json:"id_by_email"`
}

// DefaultHandling returns first-in-order email delivery with both
// identification methods required.
func DefaultHandling() Handling {
	return Handling{RequestBy: ModeEmail, DocumentBy: ModeEmail, IDBySMS: true, IDByEmail: true}
}

// Validate checks every field.
func (h Handling) Validate() error {
	if h.Ordinal < 0 {
		return value.Invalid("ordinal", "must be zero or greater")
	}
	if !h.RequestBy.Valid() {
		return value.Invalid("request_by", "must be email or sms")
	}
	if !h.DocumentBy.Valid() {
		return value.Invalid("document_by", "must be email or sms")
	}
	return nil
}

// IdentificationMethods returns the required methods, email first.
func (h Handling) IdentificationMethods() []string {
	methods := make([]string, 0, 2)
	if h.IDByEmail {
		methods = append(methods, "email")
	}
	if h.IDBySMS {
		methods = append(methods, "sms")
	}
	return methods
}
