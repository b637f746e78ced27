// Package source defines the external listing sources a search fans out to
// and the registry that resolves which of them apply to a country.
package source

import (
	"context"
	"net/url"
	"strings"

	"github.com/hyperifyio/gopricecmp/internal/pricing"
)

// CountryAll marks a source as global: applicable to every request country.
const CountryAll = "ALL"

// Provider is one external site or API queried for product listings. A
// provider owns its whole sub-pipeline: fetching, extraction, and shaping
// raw hits into candidates. Failures are the provider's own; they never
// cancel sibling providers.
type Provider interface {
	ID() string
	Countries() []string
	Search(ctx context.Context, country, query string) ([]pricing.Candidate, error)
}

// Registry holds the configured providers in registration order, which is
// also launch order during fan-out.
type Registry struct {
	providers []Provider
}

func (r *Registry) Add(p Provider) {
	r.providers = append(r.providers, p)
}

// ForCountry resolves the providers applicable to a request country:
// country-restricted providers matching the code, plus every global one.
// An empty result means the request is unserviceable.
func (r *Registry) ForCountry(country string) []Provider {
	want := strings.ToUpper(strings.TrimSpace(country))
	out := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		for _, c := range p.Countries() {
			if c == CountryAll || strings.ToUpper(c) == want {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// Len reports how many providers are registered.
func (r *Registry) Len() int { return len(r.providers) }

// cleanLink lowercases the host and strips common tracking parameters so the
// caller-facing link is stable across repeated searches.
func cleanLink(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return strings.TrimSpace(raw)
	}
	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	q := u.Query()
	for _, p := range []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "utm_id", "gclid", "fbclid"} {
		q.Del(p)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// matchesQuery reports whether every word of the query appears in the
// listing name. Keeps accessory rows out of exact-product searches.
func matchesQuery(name, query string) bool {
	name = strings.ToLower(name)
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if !strings.Contains(name, w) {
			return false
		}
	}
	return name != ""
}
