package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hyperifyio/gopricecmp/internal/pricing"
)

// pricePatterns is the ordered regex family for the pattern tier. Order
// encodes trust: explicit symbol forms beat labeled bare numbers. The first
// pattern to claim a text span wins; later patterns cannot re-match inside a
// claimed span.
var pricePatterns = []*regexp.Regexp{
	// $1,299.00  €12,50
	regexp.MustCompile(`[\$£€¥₹]\s*\d[\d,.]*`),
	// 1,299.00$  199€
	regexp.MustCompile(`\d[\d,.]*\s*[\$£€¥₹]`),
	// 1299.00 USD
	regexp.MustCompile(`\d[\d,.]*\s*(?:USD|EUR|GBP|JPY|INR|CAD|AUD)\b`),
	// price: $123.45, cost - 123
	regexp.MustCompile(`(?i)(?:price|cost)\s*[:\-]?\s*[\$£€¥₹]?\s*\d[\d,.]*`),
	// from $123, starting at 123
	regexp.MustCompile(`(?i)(?:from|starting at)\s+[\$£€¥₹]\s*\d[\d,.]*`),
}

var currencyTokenRe = regexp.MustCompile(`[\$£€¥₹]|USD|EUR|GBP|JPY|INR|CAD|AUD`)

// contextWindow is how much surrounding text travels with a pattern match so
// the validator can see phrasing like "since 1987" around a bare number.
const contextWindow = 80

// matchPatterns scans text with the pattern family and returns one candidate
// per claimed span. name is the listing title the candidates inherit.
func matchPatterns(text, name, sourceID, link string) []pricing.Candidate {
	var out []pricing.Candidate
	var claimed [][2]int

	for _, re := range pricePatterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			if overlapsAny(claimed, loc[0], loc[1]) {
				continue
			}
			claimed = append(claimed, [2]int{loc[0], loc[1]})

			raw := strings.TrimSpace(text[loc[0]:loc[1]])
			c := pricing.Candidate{
				ProductName:  name,
				RawPriceText: raw,
				SourceID:     sourceID,
				Link:         link,
			}
			if sym := currencyTokenRe.FindString(raw); sym != "" {
				if code, ok := pricing.CurrencyForSymbol(sym); ok {
					c.Currency = code
				}
			}
			c.SetInfo("context", contextAround(text, loc[0], loc[1]))
			out = append(out, c)
		}
	}
	return out
}

func overlapsAny(claimed [][2]int, start, end int) bool {
	for _, span := range claimed {
		if start < span[1] && end > span[0] {
			return true
		}
	}
	return false
}

func contextAround(text string, start, end int) string {
	lo := start - contextWindow
	if lo < 0 {
		lo = 0
	}
	hi := end + contextWindow
	if hi > len(text) {
		hi = len(text)
	}
	// The window offsets are byte counts and may land inside a multi-byte
	// rune. Back off to boundaries before slicing.
	for lo > 0 && !utf8.RuneStart(text[lo]) {
		lo--
	}
	for hi < len(text) && !utf8.RuneStart(text[hi]) {
		hi++
	}
	return strings.TrimSpace(text[lo:hi])
}
