package contract

import "github.com/squideyes/esignatures/value"

// EmailSpec overrides the subject and body of one provider notification.
type EmailSpec struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Validate requires a trimmed subject and a non-blank body.
func (e EmailSpec) Validate() error {
	if !value.IsNonEmptyAndTrimmed(e.Subject) {
		return value.Invalid("subject", "must be non-empty and trimmed")
	}
	if value.IsBlank(e.Body) {
		return value.Invalid("body", "must not be blank")
	}
	return nil
}

// Branding customises the company name and logo on the signing pages.
type Branding struct {
	CompanyName string `json:"company_name,omitempty"`
	LogoURL     string `json:"logo_url,omitempty"`
}

// IsZero reports whether no branding is set.
func (b Branding) IsZero() bool {
	return b.CompanyName == "" && b.LogoURL == ""
}
