package metadata

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

const shortIDCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// ShortID length bounds.
const (
	DefaultShortIDLength = 8
	MinShortIDLength     = 4
	MaxShortIDLength     = 12
)

// ShortID is a short human-friendly identifier drawn from an alphabet
// without look-alike characters (no I, O, 0 or 1).
type ShortID string

// NewShortID returns a random ShortID of the default length.
func NewShortID() ShortID {
	s, _ := NewShortIDN(DefaultShortIDLength)
	return s
}

// NewShortIDN returns a random ShortID of n characters.
func NewShortIDN(n int) (ShortID, error) {
	if n < MinShortIDLength || n > MaxShortIDLength {
		return "", fmt.Errorf("metadata: short id length %d: %w", n, ErrInvalidArgument)
	}
	var b strings.Builder
	b.Grow(n)
	for range n {
		b.WriteByte(shortIDCharset[rand.IntN(len(shortIDCharset))])
	}
	return ShortID(b.String()), nil
}

// IsShortID reports whether s is a well-formed ShortID of any allowed length.
func IsShortID(s string) bool {
	if len(s) < MinShortIDLength || len(s) > MaxShortIDLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(shortIDCharset, s[i]) < 0 {
			return false
		}
	}
	return true
}

// ParseShortID validates s and returns it as a ShortID.
func ParseShortID(s string) (ShortID, error) {
	if !IsShortID(s) {
		return "", fmt.Errorf("metadata: short id %q: %w", s, ErrInvalidArgument)
	}
	return ShortID(s), nil
}

// String returns the identifier text.
func (s ShortID) String() string { return string(s) }

// Type returns TypeShortID.
func (ShortID) Type() Type { return TypeShortID }

func (s ShortID) encode() string { return string(s) }

func (s ShortID) equal(o Value) bool { return same(s, o) }
