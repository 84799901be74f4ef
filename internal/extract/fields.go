package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var amountRe = regexp.MustCompile(`\$([\d,]+\.?\d*)`)

// Amount returns the first dollar amount in text, thousands separators
// stripped. Absence of an amount is not an error.
func Amount(text string) (decimal.Decimal, bool) {
	m := amountRe.FindStringSubmatch(text)
	if m == nil {
		return decimal.Decimal{}, false
	}
	value, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return decimal.Decimal{}, false
	}
	return value, true
}

var payerNameRe = regexp.MustCompile(`(?i)payment received from\s+([^\n]+)`)

// PayerName pulls the customer name out of a processor notification subject
// of the form "$X payment received from NAME".
func PayerName(subject string) (string, bool) {
	m := payerNameRe.FindStringSubmatch(subject)
	if m == nil {
		return "", false
	}
	name := strings.TrimSpace(m[1])
	if name == "" {
		return "", false
	}
	return name, true
}

// OrderFields are the label-prefixed lines of a structured order
// notification body. Empty string means the label was not present.
type OrderFields struct {
	Name     string
	Company  string
	Phone    string
	Email    string
	Comments string
	Total    decimal.Decimal
	HasTotal bool
}

var (
	nameLineRe     = regexp.MustCompile(`(?im)^\s*Name\s*:\s*(.+)$`)
	companyLineRe  = regexp.MustCompile(`(?im)^\s*Company\s*:\s*(.+)$`)
	phoneLineRe    = regexp.MustCompile(`(?im)^\s*Phone\s*:\s*(.+)$`)
	emailLineRe    = regexp.MustCompile(`(?im)^\s*Email\s*:\s*(.+)$`)
	commentsLineRe = regexp.MustCompile(`(?im)^\s*Comments?\s*:\s*(.+)$`)
	totalLineRe    = regexp.MustCompile(`(?im)^\s*Total\s*:\s*(.+)$`)
	phoneDigitsRe  = regexp.MustCompile(`\D`)
)

// Fields extracts the labeled order fields from a notification body.
// Phone numbers are normalized to dash separators and emails lowercased.
func Fields(body string) OrderFields {
	fields := OrderFields{
		Name:     lineValue(nameLineRe, body),
		Company:  lineValue(companyLineRe, body),
		Email:    strings.ToLower(lineValue(emailLineRe, body)),
		Comments: lineValue(commentsLineRe, body),
	}

	if phone := lineValue(phoneLineRe, body); phone != "" {
		fields.Phone = NormalizePhone(phone)
	}

	if totalLine := lineValue(totalLineRe, body); totalLine != "" {
		if total, ok := Amount(totalLine); ok {
			fields.Total = total
			fields.HasTotal = true
		} else if total, err := decimal.NewFromString(strings.ReplaceAll(totalLine, ",", "")); err == nil {
			fields.Total = total
			fields.HasTotal = true
		}
	}

	return fields
}

func lineValue(re *regexp.Regexp, body string) string {
	m := re.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// NormalizePhone reduces a phone number to ddd-ddd-dddd when it carries ten
// digits (a leading country 1 is dropped). Anything else is returned trimmed.
func NormalizePhone(raw string) string {
	digits := phoneDigitsRe.ReplaceAllString(raw, "")
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return strings.TrimSpace(raw)
	}
	return digits[0:3] + "-" + digits[3:6] + "-" + digits[6:10]
}

var skuRe = regexp.MustCompile(`\b([A-Z][A-Z0-9]{1,5})-[A-Z0-9]+\b`)

// SKUPrefixes returns the deduplicated, order-preserving list of SKU prefixes
// (the portion before the hyphen) found in text. Prefixes key the warehouse
// lookup table, so they are uppercased.
func SKUPrefixes(text string) []string {
	matches := skuRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	prefixes := make([]string, 0, len(matches))
	for _, m := range matches {
		prefix := strings.ToUpper(m[1])
		if _, ok := seen[prefix]; ok {
			continue
		}
		seen[prefix] = struct{}{}
		prefixes = append(prefixes, prefix)
	}
	return prefixes
}
