package pricing

import "strings"

// Candidate is a tentative product listing flowing through the pipeline.
// Price is meaningful only when Resolved is true; an unresolved candidate is
// still returned to the caller and ranks after all priced ones.
type Candidate struct {
	ProductName  string
	RawPriceText string
	Price        float64
	Resolved     bool
	Currency     string
	SourceID     string
	Link         string
	ImageURL     string
	Info         map[string]string
	Estimated    bool
}

// SetPrice resolves the candidate's price. Negative values are ignored so the
// non-negativity invariant holds regardless of caller input.
func (c *Candidate) SetPrice(v float64) {
	if v < 0 {
		return
	}
	c.Price = v
	c.Resolved = true
}

// SetInfo lazily initializes the Info map and stores key=value.
func (c *Candidate) SetInfo(key, value string) {
	if value == "" {
		return
	}
	if c.Info == nil {
		c.Info = map[string]string{}
	}
	c.Info[key] = value
}

// countryCurrency maps lowercase two-letter country codes to the currency a
// shopper there is billed in. Used when no symbol could be recognized.
var countryCurrency = map[string]string{
	"us": "USD",
	"uk": "GBP",
	"gb": "GBP",
	"de": "EUR",
	"fr": "EUR",
	"it": "EUR",
	"es": "EUR",
	"jp": "JPY",
	"in": "INR",
	"ca": "CAD",
	"au": "AUD",
}

// symbolCurrency maps currency symbols and common codes to ISO 4217 codes.
var symbolCurrency = map[string]string{
	"$":   "USD",
	"£":   "GBP",
	"€":   "EUR",
	"¥":   "JPY",
	"₹":   "INR",
	"USD": "USD",
	"EUR": "EUR",
	"GBP": "GBP",
	"JPY": "JPY",
	"INR": "INR",
	"CAD": "CAD",
	"AUD": "AUD",
}

// CurrencyForCountry returns the expected currency for a country code, or
// fallback when the country is unknown. An empty fallback defaults to USD.
func CurrencyForCountry(country, fallback string) string {
	if c, ok := countryCurrency[strings.ToLower(strings.TrimSpace(country))]; ok {
		return c
	}
	if fallback != "" {
		return fallback
	}
	return "USD"
}

// CurrencyForSymbol maps a detected symbol or code to its ISO code. The second
// return is false when the symbol is not recognized.
func CurrencyForSymbol(sym string) (string, bool) {
	c, ok := symbolCurrency[strings.TrimSpace(sym)]
	return c, ok
}

// KnownSymbols returns the symbols checked during pattern extraction, longest
// first so code forms like "USD" win over "$" in span claims.
func KnownSymbols() []string {
	return []string{"USD", "EUR", "GBP", "JPY", "INR", "CAD", "AUD", "$", "£", "€", "¥", "₹"}
}
