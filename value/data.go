package value

import (
	_ "embed"
	"strings"
)

var (
	//go:embed data/blocked_domains.txt
	blockedDomainsText string

	//go:embed data/tlds.txt
	topLevelDomainsText string

	//go:embed data/countries.txt
	countriesText string
)

// Lookup sets are built once at package init and never mutated afterwards.
var (
	blockedDomains  = parseSet(blockedDomainsText, "//", strings.ToLower)
	topLevelDomains = parseSet(topLevelDomainsText, "#", strings.ToLower)
	countryCodes    = parseSet(countriesText, "#", strings.ToUpper)
)

// parseSet turns a newline-separated list into a set, skipping blank lines
// and lines that start with commentPrefix.
func parseSet(text, commentPrefix string, fold func(string) string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}
		set[fold(line)] = struct{}{}
	}
	return set
}
