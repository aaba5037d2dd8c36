package value

import (
	"regexp"
	"strings"
)

var nicknamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]{0,23}$`)

// IsNickname reports whether s is an alphanumeric token of at most 24
// characters that does not start with a digit.
func IsNickname(s string) bool {
	return nicknamePattern.MatchString(s)
}

// IsNonEmptyAndTrimmed reports whether s has content and no surrounding
// whitespace.
func IsNonEmptyAndTrimmed(s string) bool {
	return s != "" && strings.TrimSpace(s) == s
}

// IsEmptyOrTrimmed reports whether s is empty or has no surrounding
// whitespace.
func IsEmptyOrTrimmed(s string) bool {
	return s == "" || IsNonEmptyAndTrimmed(s)
}

// IsBlank reports whether s is empty or whitespace only.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// IsDashedKey reports whether s is a lower-case dashed key: 2 to 32
// characters of a-z, 0-9 and '-', not starting or ending with '-' and
// never containing "--". Placeholder keys and metadata tags use it.
func IsDashedKey(s string) bool {
	if len(s) < 2 || len(s) > 32 {
		return false
	}
	if s[0] == '-' || s[len(s)-1] == '-' || strings.Contains(s, "--") {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' {
			return false
		}
	}
	return true
}
