package extract

import (
	"regexp"
	"strings"
)

// Address is a parsed city/state/zip plus, when found, the street line that
// precedes it.
type Address struct {
	Street string
	City   string
	State  string
	Zip    string
}

// cityBlocklist rejects label words that sit on lines adjacent to the real
// address and would otherwise pass the looser city patterns.
var cityBlocklist = []string{"total", "order", "email", "phone", "comment", "name", "company"}

type addressRule struct {
	name string
	re   *regexp.Regexp
}

var addressRules = []addressRule{
	// "Keystone Heights  FL  32656"
	{name: "double_space", re: regexp.MustCompile(`(?m)^\s*([A-Za-z][A-Za-z .'-]*[A-Za-z.])\s{2,}([A-Z]{2})\s{2,}(\d{5}(?:-\d{4})?)\s*$`)},
	// "Keystone Heights, FL 32656"
	{name: "comma", re: regexp.MustCompile(`([A-Za-z][A-Za-z .'-]*[A-Za-z.]),\s*([A-Z]{2})\s+(\d{5}(?:-\d{4})?)\b`)},
	// "Keystone Heights FL 32656"
	{name: "single_space", re: regexp.MustCompile(`(?m)^\s*([A-Za-z][A-Za-z .'-]*[A-Za-z.])\s+([A-Z]{2})\s+(\d{5}(?:-\d{4})?)\s*$`)},
}

var (
	phoneLikeRe    = regexp.MustCompile(`^\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`)
	streetSuffixRe = regexp.MustCompile(`(?i)\b(?:street|st|avenue|ave|road|rd|drive|dr|lane|ln|boulevard|blvd|court|ct|circle|cir|place|pl|way|terrace|ter|highway|hwy|parkway|pkwy)\.?\b`)
	anyDigitRe     = regexp.MustCompile(`\d`)
)

// ParseAddress runs the city/state/zip rule cascade over body and, once a
// city is known, scans for the street line. First rule producing a
// non-blocklisted city wins; no match returns ok=false.
func ParseAddress(body string) (Address, bool) {
	for _, rule := range addressRules {
		for _, m := range rule.re.FindAllStringSubmatch(body, -1) {
			city := strings.TrimSpace(m[1])
			if cityBlocked(city) {
				continue
			}
			addr := Address{
				City:  city,
				State: m[2],
				Zip:   m[3],
			}
			addr.Street = streetLine(body, city)
			return addr, true
		}
	}
	return Address{}, false
}

func cityBlocked(city string) bool {
	lowered := strings.ToLower(city)
	for _, word := range cityBlocklist {
		if strings.Contains(lowered, word) {
			return true
		}
	}
	return false
}

// streetLine picks the first line that starts with a digit and is neither a
// phone number nor a currency line. Falls back to a street-suffix keyword
// scan when no such line exists.
func streetLine(body, city string) string {
	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || line[0] < '0' || line[0] > '9' {
			continue
		}
		if phoneLikeRe.MatchString(line) {
			continue
		}
		if strings.Contains(line, "$") {
			continue
		}
		if strings.HasPrefix(line, city) {
			continue
		}
		return line
	}

	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.Contains(line, "$") {
			continue
		}
		if strings.HasPrefix(line, city) {
			continue
		}
		if anyDigitRe.MatchString(line) && streetSuffixRe.MatchString(line) {
			return line
		}
	}
	return ""
}
