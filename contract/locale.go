package contract

import (
	"fmt"
	"strings"

	"github.com/squideyes/esignatures/value"
)

// Locale is a language supported by the provider's signing pages.
type Locale int

// Supported locales. The zero value is not a locale.
const (
	LocaleCZ Locale = iota + 1
	LocaleDA
	LocaleDE
	LocaleEN
	LocaleENGB
	LocaleES
	LocaleFR
	LocaleHR
	LocaleHU
	LocaleID
	LocaleIT
	LocaleJA
	LocaleNL
	LocaleNO
	LocalePL
	LocalePT
	LocaleRO
	LocaleRS
	LocaleSK
	LocaleSL
	LocaleSV
	LocaleVI
)

var localeNames = [...]string{
	LocaleCZ: "CZ", LocaleDA: "DA", LocaleDE: "DE", LocaleEN: "EN",
	LocaleENGB: "ENGB", LocaleES: "ES", LocaleFR: "FR", LocaleHR: "HR",
	LocaleHU: "HU", LocaleID: "ID", LocaleIT: "IT", LocaleJA: "JA",
	LocaleNL: "NL", LocaleNO: "NO", LocalePL: "PL", LocalePT: "PT",
	LocaleRO: "RO", LocaleRS: "RS", LocaleSK: "SK", LocaleSL: "SL",
	LocaleSV: "SV", LocaleVI: "VI",
}

// Valid reports whether l is a known locale.
func (l Locale) Valid() bool {
	return l >= LocaleCZ && l <= LocaleVI
}

// String returns the enumeration name, e.g. "ENGB".
func (l Locale) String() string {
	if !l.Valid() {
		return fmt.Sprintf("Locale(%d)", int(l))
	}
	return localeNames[l]
}

// Code returns the provider's locale code: the lower-cased name, except
// ENGB which the provider spells "en-GB".
func (l Locale) Code() string {
	if l == LocaleENGB {
		return "en-GB"
	}
	return strings.ToLower(l.String())
}

// ParseLocale accepts an enumeration name ("ENGB") or a provider code
// ("en-GB"), case-insensitively.
func ParseLocale(s string) (Locale, error) {
	for l := LocaleCZ; l <= LocaleVI; l++ {
		if strings.EqualFold(s, l.String()) || strings.EqualFold(s, l.Code()) {
			return l, nil
		}
	}
	return 0, value.Invalid("locale", fmt.Sprintf("%q is not a supported locale", s))
}

// MarshalText implements encoding.TextMarshaler using the provider code.
func (l Locale) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("contract: unknown locale %d", int(l))
	}
	return []byte(l.Code()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Locale) UnmarshalText(text []byte) error {
	parsed, err := ParseLocale(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
