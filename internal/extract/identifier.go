// Package extract pulls order identifiers and typed fields out of the free
// text that external signals arrive as (email subjects and bodies, payment
// descriptions). Every extractor is a pure function over an ordered list of
// named rules; a non-match returns an absent value, never an error.
package extract

import "regexp"

// idRule is one identifier pattern. Rules are evaluated in order and the
// first match wins, so precedence is explicit in the slice below.
type idRule struct {
	name string
	re   *regexp.Regexp
}

var orderIDRules = []idRule{
	// "order 5307", "Order #5307", bare "#5307"
	{name: "labeled", re: regexp.MustCompile(`(?i)(?:order\s*#?\s*|#)(\d{4,5})\b`)},
	// Wholesale notification subjects carry "(#5261)" with up to 7 digits.
	{name: "parenthesized", re: regexp.MustCompile(`\(#(\d{4,7})\)`)},
	{name: "order_id_label", re: regexp.MustCompile(`(?i)\border\s+id\s*:\s*(\d{4,7})\b`)},
	// Least reliable: any standalone 4-5 digit number.
	{name: "standalone", re: regexp.MustCompile(`\b(\d{4,5})\b`)},
}

// OrderID returns the most plausible order identifier in text, or ok=false
// when no rule matches. Identifiers are opaque strings even when numeric.
func OrderID(text string) (string, bool) {
	for _, rule := range orderIDRules {
		if m := rule.re.FindStringSubmatch(text); m != nil {
			return m[1], true
		}
	}
	return "", false
}

var (
	// "5299-Creative Spaces" style payment-link names.
	leadingIDRe = regexp.MustCompile(`^(\d{4,5})-`)
	// Order numbers in this business start with 5.
	prefixedIDRe = regexp.MustCompile(`\b(5\d{3,4})\b`)
	anyIDRe      = regexp.MustCompile(`\b(\d{4,5})\b`)
)

// PaymentOrderIDs extracts every order identifier referenced by a payment
// description. A single payment can cover several orders ("5317 & 5319 G&B"),
// so the result is an ordered, deduplicated list, possibly empty.
func PaymentOrderIDs(description string) []string {
	if description == "" {
		return nil
	}

	var ids []string
	if m := leadingIDRe.FindStringSubmatch(description); m != nil {
		ids = append(ids, m[1])
	}
	for _, m := range prefixedIDRe.FindAllStringSubmatch(description, -1) {
		ids = append(ids, m[1])
	}
	if len(ids) == 0 {
		for _, m := range anyIDRe.FindAllStringSubmatch(description, -1) {
			ids = append(ids, m[1])
		}
	}

	seen := make(map[string]struct{}, len(ids))
	unique := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}
