package signer

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"

	"github.com/squideyes/esignatures/value"
)

// Signer is one party to a contract. ID is zero until the provider has
// accepted the contract and assigned one.
type Signer struct {
	FullName string      `json:"full_name"`
	Nickname string      `json:"nickname"`
	Email    value.Email `json:"email"`
	Mobile   value.Phone `json:"mobile"`
	Company  string      `json:"company,omitempty"`
	ID       uuid.UUID   `json:"id,omitempty"`
}

// Validate checks every field.
func (s *Signer) Validate() error {
	if !value.IsNonEmptyAndTrimmed(s.FullName) {
		return value.Invalid("full_name", "must be non-empty and trimmed")
	}
	if !value.IsNickname(s.Nickname) {
		return value.Invalid("nickname", "must be an alphanumeric token of at most 24 characters")
	}
	if !value.IsEmail(string(s.Email)) {
		return value.Invalid("email", "must be a valid email address")
	}
	if !value.IsPhone(string(s.Mobile)) {
		return value.Invalid("mobile", "must be a valid mobile phone number")
	}
	if !value.IsEmptyOrTrimmed(s.Company) {
		return value.Invalid("company", "must be empty or trimmed")
	}
	return nil
}

// Hash returns the signer's identity hash.
func (s *Signer) Hash() string {
	return Hash(s.FullName, string(s.Email), string(s.Mobile))
}

// Hash returns the lower-case hex SHA-256 of name, email and the
// normalized mobile number concatenated. Email is used exactly as given.
func Hash(name, email, mobile string) string {
	sum := sha256.Sum256([]byte(name + email + NormalizeMobile(mobile)))
	return hex.EncodeToString(sum[:])
}

// NormalizeMobile returns "+" followed by the digits of s, dropping every
// other character including extension separators.
func NormalizeMobile(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 1)
	b.WriteByte('+')
	for _, c := range s {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}
