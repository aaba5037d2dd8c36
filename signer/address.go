package signer

import (
	"strings"

	"github.com/squideyes/esignatures/value"
)

// Address is a postal address. Address2 is optional.
type Address struct {
	Country    string `json:"country"`
	Address1   string `json:"address1"`
	Address2   string `json:"address2,omitempty"`
	Locality   string `json:"locality"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code"`
}

// Validate checks every field. The postal code is checked against the
// country's format.
func (a *Address) Validate() error {
	if !value.IsCountryCode(a.Country) {
		return value.Invalid("country", "must be an ISO 3166 country code")
	}
	if !value.IsNonEmptyAndTrimmed(a.Address1) {
		return value.Invalid("address1", "must be non-empty and trimmed")
	}
	if !value.IsEmptyOrTrimmed(a.Address2) {
		return value.Invalid("address2", "must be empty or trimmed")
	}
	if !value.IsNonEmptyAndTrimmed(a.Locality) {
		return value.Invalid("locality", "must be non-empty and trimmed")
	}
	if !value.IsNonEmptyAndTrimmed(a.Region) {
		return value.Invalid("region", "must be non-empty and trimmed")
	}
	if !value.IsPostalCode(a.Country, a.PostalCode) {
		return value.Invalid("postal_code", "must be valid for "+a.Country)
	}
	return nil
}

// OneLine renders the address as a single comma-separated line.
func (a *Address) OneLine() string {
	parts := make([]string, 0, 6)
	parts = append(parts, a.Address1)
	if a.Address2 != "" {
		parts = append(parts, a.Address2)
	}
	parts = append(parts, a.Locality, a.Region, a.PostalCode, a.Country)
	return strings.Join(parts, ", ")
}
