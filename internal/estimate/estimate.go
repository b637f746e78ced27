// Package estimate assigns heuristic prices to listings that survived
// validation without a resolved price. Estimates are flagged, never silently
// mixed in with extracted prices.
package estimate

import (
	"strings"

	"github.com/hyperifyio/gopricecmp/internal/pricing"
)

// Rule maps recognition tokens to a flat estimated price. The first rule
// whose token matches wins, so order the table from specific to generic.
type Rule struct {
	Tokens []string `yaml:"tokens"`
	Price  float64  `yaml:"price"`
}

// DefaultRules covers the wearables vertical the service launched with.
// Deployments override the table from the config file.
func DefaultRules() []Rule {
	return []Rule{
		{Tokens: []string{"apple watch", "apple"}, Price: 399},
		{Tokens: []string{"garmin"}, Price: 299},
		{Tokens: []string{"amazfit"}, Price: 149},
		{Tokens: []string{"fitbit"}, Price: 199},
		{Tokens: []string{"omega", "tudor", "vacheron", "constantin", "luxury"}, Price: 2999},
		{Tokens: []string{"smartwatch", "smart watch"}, Price: 149},
	}
}

// Estimator matches rule tokens case-insensitively against a candidate's
// name, source and the original query.
type Estimator struct {
	Rules []Rule
}

// New returns an Estimator over rules, falling back to the built-in table
// when rules is empty.
func New(rules []Rule) *Estimator {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Estimator{Rules: rules}
}

// Apply fills in an estimated price for a candidate without one. Candidates
// that already carry a resolved price pass through untouched. When no rule
// matches, the candidate stays unresolved; partial information is still
// useful to the caller.
func (e *Estimator) Apply(c *pricing.Candidate, query string) {
	if c.Resolved {
		return
	}
	haystack := strings.ToLower(c.ProductName + " " + c.SourceID + " " + query)
	for _, r := range e.Rules {
		for _, tok := range r.Tokens {
			if tok == "" {
				continue
			}
			if strings.Contains(haystack, strings.ToLower(tok)) {
				c.SetPrice(r.Price)
				c.Estimated = true
				c.SetInfo("priceEstimated", "true")
				return
			}
		}
	}
}
