package delivery

import (
	"regexp"
	"strings"
)

type contractInfo struct {
	month   string
	product string
}

type contractMatcher struct {
	name    string
	pattern *regexp.Regexp
}

// contractMatchers are tried in order; the first match wins. Each pattern captures
// month name, year and product.
var contractMatchers = []contractMatcher{
	{
		name:    "exchange_qualified",
		pattern: regexp.MustCompile(`(?i)^CONTRACT:\s*([A-Z]+)\s+(\d{4})\s+COMEX\s+(?:\d+\s+)?([A-Z]+)\s+FUTURES\b`),
	},
	{
		name:    "bare",
		pattern: regexp.MustCompile(`(?i)^CONTRACT:\s*([A-Z]+)\s+(\d{4})\s+([A-Z]+)\s+FUTURES\b`),
	},
}

func matchContract(line string) (contractInfo, bool) {
	for _, m := range contractMatchers {
		groups := m.pattern.FindStringSubmatch(line)
		if groups == nil {
			continue
		}
		return contractInfo{
			month:   strings.ToUpper(groups[1]) + " " + groups[2],
			product: titleCase(groups[3]),
		}, true
	}
	return contractInfo{}, false
}

func titleCase(word string) string {
	if word == "" {
		return word
	}
	lower := strings.ToLower(word)
	return strings.ToUpper(lower[:1]) + lower[1:]
}
