// Package validate filters and normalizes price candidates: it tells plausible
// prices apart from look-alike numbers, coerces raw text to a decimal value,
// and settles every resolved candidate on a canonical currency code.
package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/currency"

	"github.com/hyperifyio/gopricecmp/internal/pricing"
)

// yearContextPatterns flag a bare integer as a year rather than a price when
// the surrounding text phrases it like one. %s is the integer's digits.
var yearContextPatterns = []string{
	`(?i)since\s*%s`,
	`(?i)est\.?\s*%s`,
	`(?i)established\s*%s`,
	`(?i)founded\s*%s`,
	`(?i)in\s+%s`,
	`(?i)from\s+%s`,
	`%s\s*®`,
	`(?i)%s\s+edition`,
	`(?i)%s\s+collection`,
}

// knownFoundingYears are watchmaker founding years that show up constantly in
// listing copy ("fine watches since 1848") even without year phrasing nearby.
var knownFoundingYears = map[int]bool{
	1755: true, 1848: true, 1875: true, 1884: true, 1905: true, 1926: true,
}

var nonNumeric = regexp.MustCompile(`[^\d.,]`)

// Candidate validates and normalizes one candidate in place. defaultCurrency
// applies when no symbol or code could be recognized; it is resolved from the
// request country upstream. The boolean is false when the candidate must be
// dropped: its cleaned value was non-numeric, non-positive, or a year in
// disguise. Candidates with no price text at all pass through unresolved;
// they are estimator input, not rejects.
func Candidate(c *pricing.Candidate, defaultCurrency string) bool {
	raw := strings.TrimSpace(c.RawPriceText)
	if raw == "" {
		return true
	}

	cleaned := cleanNumeric(raw)
	if cleaned == "" {
		// Price text that cleans to nothing is noise; keep the listing but
		// leave it unresolved.
		c.RawPriceText = ""
		return true
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || value <= 0 {
		return false
	}

	if isLikelyYear(raw, value, c) {
		return false
	}

	c.SetPrice(value)
	c.Currency = normalizeCurrency(c.Currency, raw, defaultCurrency)
	return true
}

// isLikelyYear reclassifies a bare digit run in [1800, 2030] as a year when
// its context reads like one. Naive digit matching otherwise turns "Since
// 1987" into an 1987.00 price. A currency symbol, decimal part, or grouping
// separator marks a deliberate price and skips the check entirely, so
// "$1,848.00" stays a price no matter what the copy says.
func isLikelyYear(raw string, value float64, c *pricing.Candidate) bool {
	if !isBareDigits(raw) {
		return false
	}
	year := int(value)
	if float64(year) != value || year < 1800 || year > 2030 {
		return false
	}
	digits := strconv.Itoa(year)

	context := strings.Join([]string{
		c.RawPriceText,
		c.ProductName,
		c.Info["context"],
		c.Info["snippet"],
	}, " ")

	for _, p := range yearContextPatterns {
		re := regexp.MustCompile(fmt.Sprintf(p, digits))
		if re.MatchString(context) {
			return true
		}
	}
	if knownFoundingYears[year] && strings.Contains(strings.ToLower(context), "watch") {
		return true
	}
	return false
}

func isBareDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// cleanNumeric strips everything but digits and separators, then resolves the
// separator convention: "1,299.00" and "1.299,00" both become "1299.00".
func cleanNumeric(raw string) string {
	s := nonNumeric.ReplaceAllString(raw, "")
	s = strings.Trim(s, ".,")
	if s == "" {
		return ""
	}

	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")
	switch {
	case hasComma && hasDot:
		if strings.LastIndex(s, ",") < strings.LastIndex(s, ".") {
			// 1,299.00 - comma groups thousands
			s = strings.ReplaceAll(s, ",", "")
		} else {
			// 1.299,00 - European convention
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		}
	case hasComma:
		if looksLikeGrouping(s, ',') {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case hasDot:
		if looksLikeGrouping(s, '.') {
			s = strings.ReplaceAll(s, ".", "")
		}
	}
	return s
}

// looksLikeGrouping reports whether every separator-delimited group after the
// first has exactly three digits, i.e. the separator groups thousands.
func looksLikeGrouping(s string, sep rune) bool {
	parts := strings.Split(s, string(sep))
	if len(parts) < 2 {
		return false
	}
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return false
		}
	}
	return true
}

// normalizeCurrency settles the candidate on a canonical ISO 4217 code. A
// symbol or code found in the raw text wins; otherwise the request country's
// expected currency applies. A resolved price is never left without one.
func normalizeCurrency(current, raw, defaultCurrency string) string {
	if code, ok := canonicalISO(current); ok {
		return code
	}
	for _, sym := range pricing.KnownSymbols() {
		if strings.Contains(raw, sym) {
			if code, ok := pricing.CurrencyForSymbol(sym); ok {
				return code
			}
		}
	}
	if code, ok := canonicalISO(defaultCurrency); ok {
		return code
	}
	return "USD"
}

func canonicalISO(code string) (string, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", false
	}
	if mapped, ok := pricing.CurrencyForSymbol(code); ok {
		code = mapped
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", false
	}
	return unit.String(), true
}
