package extract

import (
	"regexp"
	"strings"
)

var (
	rlQuoteRe     = regexp.MustCompile(`(?i)(?:RL\s+)?Quote\s*(?:No|Number|#)?\s*[:#]?\s*(\d{6,10})\b`)
	proNumberRe   = regexp.MustCompile(`(?i)\bPRO\s*(?:#|Number)?\s*[:#]?\s*([A-Z]{0,2}\d{8,10}(?:-\d)?)\b`)
	upsTrackingRe = regexp.MustCompile(`\b(1Z[A-Z0-9]{16})\b`)
)

// RLQuoteNo extracts a freight quote number (6-10 digits, optionally labeled
// "Quote", "RL Quote" or "#").
func RLQuoteNo(text string) (string, bool) {
	m := rlQuoteRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// PRONumber extracts a freight PRO/tracking reference: optional 0-2 letter
// prefix, 8-10 digits, optional "-digit" suffix.
func PRONumber(text string) (string, bool) {
	m := proNumberRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.ToUpper(m[1]), true
}

// UPSTracking extracts the fixed 18-character parcel tracking code that
// begins with the "1Z" carrier prefix.
func UPSTracking(text string) (string, bool) {
	m := upsTrackingRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}
