package value

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used to interpret numbers entered without a leading '+'.
const DefaultRegion = "US"

// Phone is a mobile number in E.164 form ("+" followed by digits).
type Phone string

// ParsePhone interprets s (any common formatting) and returns it in E.164
// form. The number must be a possible number for its country.
func ParsePhone(s string) (Phone, error) {
	if strings.TrimSpace(s) == "" {
		return "", Invalid("mobile", "must be non-empty")
	}

	num, err := phonenumbers.Parse(s, DefaultRegion)
	if err != nil {
		return "", Invalid("mobile", "must be a valid phone number")
	}
	if !phonenumbers.IsPossibleNumber(num) {
		return "", Invalid("mobile", "must be a valid phone number for its country")
	}

	return Phone(phonenumbers.Format(num, phonenumbers.E164)), nil
}

// IsPhone reports whether s parses as a possible phone number.
func IsPhone(s string) bool {
	_, err := ParsePhone(s)
	return err == nil
}

// String returns the E.164 form.
func (p Phone) String() string { return string(p) }
