package source

import (
	"context"
	"testing"

	"github.com/hyperifyio/gopricecmp/internal/pricing"
)

func TestCleanLink(t *testing.T) {
	cases := []struct{ in, want string }{
		{"https://Shop.Example.com/p?utm_source=x&utm_campaign=y&id=5", "https://shop.example.com/p?id=5"},
		{"https://shop.example.com/p?gclid=abc#reviews", "https://shop.example.com/p"},
		{"https://shop.example.com/p", "https://shop.example.com/p"},
		{"not a url", "not a url"},
	}
	for _, tc := range cases {
		if got := cleanLink(tc.in); got != tc.want {
			t.Fatalf("cleanLink(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMatchesQuery(t *testing.T) {
	if !matchesQuery("Apple Watch Series 9 GPS", "apple watch") {
		t.Fatalf("expected match")
	}
	if matchesQuery("Watch strap for Apple devices", "apple watch series") {
		t.Fatalf("missing word must not match")
	}
	if matchesQuery("", "anything") {
		t.Fatalf("empty name must not match")
	}
}

type stubProvider struct {
	id        string
	countries []string
}

func (s *stubProvider) ID() string          { return s.id }
func (s *stubProvider) Countries() []string { return s.countries }
func (s *stubProvider) Search(ctx context.Context, country, query string) ([]pricing.Candidate, error) {
	return nil, nil
}

func TestRegistry_ForCountry(t *testing.T) {
	r := &Registry{}
	r.Add(&stubProvider{id: "global", countries: []string{CountryAll}})
	r.Add(&stubProvider{id: "india", countries: []string{"IN"}})
	r.Add(&stubProvider{id: "us-uk", countries: []string{"US", "UK"}})

	got := r.ForCountry("in")
	if len(got) != 2 || got[0].ID() != "global" || got[1].ID() != "india" {
		t.Fatalf("unexpected providers for IN: %+v", ids(got))
	}
	got = r.ForCountry("DE")
	if len(got) != 1 || got[0].ID() != "global" {
		t.Fatalf("unexpected providers for DE: %+v", ids(got))
	}
	if r.Len() != 3 {
		t.Fatalf("unexpected registry size: %d", r.Len())
	}
}

func ids(ps []Provider) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID())
	}
	return out
}
