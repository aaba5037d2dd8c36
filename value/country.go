package value

import (
	"regexp"
	"strings"
)

// postalCodePatterns holds country-specific formats. Countries without an
// entry fall back to genericPostalCode.
var postalCodePatterns = map[string]*regexp.Regexp{
	"AT": regexp.MustCompile(`^\d{4}$`),
	"AU": regexp.MustCompile(`^\d{4}$`),
	"BE": regexp.MustCompile(`^\d{4}$`),
	"BR": regexp.MustCompile(`^\d{5}-?\d{3}$`),
	"CA": regexp.MustCompile(`^[ABCEGHJ-NPRSTVXY]\d[ABCEGHJ-NPRSTV-Z] ?\d[ABCEGHJ-NPRSTV-Z]\d$`),
	"CH": regexp.MustCompile(`^\d{4}$`),
	"DE": regexp.MustCompile(`^\d{5}$`),
	"DK": regexp.MustCompile(`^\d{4}$`),
	"ES": regexp.MustCompile(`^\d{5}$`),
	"FR": regexp.MustCompile(`^\d{2} ?\d{3}$`),
	"GB": regexp.MustCompile(`^(?i)(GIR ?0AA|[A-Z]{1,2}\d[A-Z\d]? ?\d[A-Z]{2})$`),
	"IE": regexp.MustCompile(`^(?i)[AC-FHKNPRTV-Y]\d{2}(\d|W) ?[0-9AC-FHKNPRTV-Y]{4}$`),
	"IN": regexp.MustCompile(`^\d{6}$`),
	"IT": regexp.MustCompile(`^\d{5}$`),
	"JP": regexp.MustCompile(`^\d{3}-?\d{4}$`),
	"MX": regexp.MustCompile(`^\d{5}$`),
	"NL": regexp.MustCompile(`^(?i)\d{4} ?[A-Z]{2}$`),
	"NO": regexp.MustCompile(`^\d{4}$`),
	"NZ": regexp.MustCompile(`^\d{4}$`),
	"PL": regexp.MustCompile(`^\d{2}-\d{3}$`),
	"PT": regexp.MustCompile(`^\d{4}-\d{3}$`),
	"SE": regexp.MustCompile(`^\d{3} ?\d{2}$`),
	"US": regexp.MustCompile(`^\d{5}(-\d{4})?$`),
}

var genericPostalCode = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 -]{1,9}$`)

// IsCountryCode reports whether s is an upper-case ISO 3166-1 alpha-2 code.
func IsCountryCode(s string) bool {
	if s == "" || s != strings.ToUpper(s) {
		return false
	}
	_, ok := countryCodes[s]
	return ok
}

// IsPostalCode reports whether code is a valid postal code for country.
func IsPostalCode(country, code string) bool {
	if !IsCountryCode(country) || !IsNonEmptyAndTrimmed(code) {
		return false
	}
	if re, ok := postalCodePatterns[country]; ok {
		return re.MatchString(code)
	}
	return genericPostalCode.MatchString(code)
}
