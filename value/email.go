package value

import (
	"strings"
	"unicode"
)

// Email is a syntactically valid address whose domain is not blocked and
// whose top-level domain is known.
type Email string

// ParseEmail validates s and returns it as an Email.
func ParseEmail(s string) (Email, error) {
	if !IsEmail(s) {
		return "", Invalid("email", "must be a valid email address")
	}
	return Email(s), nil
}

// IsEmail reports whether s is a well-formed address on a permitted domain.
func IsEmail(s string) bool {
	if !isWellFormedEmail(s) {
		return false
	}
	_, blocked := blockedDomains[strings.ToLower(domainOf(s))]
	return !blocked
}

// String returns the address as entered.
func (e Email) String() string { return string(e) }

// Domain returns the part after the '@'.
func (e Email) Domain() string { return domainOf(string(e)) }

func domainOf(s string) string {
	if i := strings.LastIndexByte(s, '@'); i >= 0 {
		return s[i+1:]
	}
	return ""
}

func isWellFormedEmail(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}

	fields := strings.Split(s, "@")
	if len(fields) != 2 {
		return false
	}
	if strings.TrimSpace(fields[0]) == "" || strings.TrimSpace(fields[1]) == "" {
		return false
	}

	return hasGoodParts(fields[0], 1, false) && hasGoodParts(fields[1], 2, true)
}

// hasGoodParts checks the dot-separated labels of one side of an address.
// When lastIsTLD is set the final label is looked up in the TLD set instead.
func hasGoodParts(field string, minParts int, lastIsTLD bool) bool {
	parts := strings.Split(field, ".")
	if len(parts) < minParts {
		return false
	}

	labels := parts
	if lastIsTLD {
		labels = parts[:len(parts)-1]
	}

	for _, part := range labels {
		if !isGoodLabel(part) {
			return false
		}
	}

	if !lastIsTLD {
		return true
	}

	_, ok := topLevelDomains[strings.ToLower(parts[len(parts)-1])]
	return ok
}

func isGoodLabel(part string) bool {
	if part == "" {
		return false
	}
	runes := []rune(part)
	if !isASCIILetter(runes[0]) {
		return false
	}
	if len(runes) == 1 {
		return true
	}
	for _, c := range runes[1 : len(runes)-1] {
		if c != '-' && !unicode.IsLetter(c) && !unicode.IsDigit(c) {
			return false
		}
	}
	last := runes[len(runes)-1]
	return isASCIILetter(last) || (last >= '0' && last <= '9')
}

func isASCIILetter(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
