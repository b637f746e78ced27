package source

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperifyio/gopricecmp/internal/extract"
	"github.com/hyperifyio/gopricecmp/internal/fetch"
)

type pageStrategy struct {
	body []byte
	err  error
	got  string
}

func (p *pageStrategy) Name() string { return "test" }

func (p *pageStrategy) Fetch(ctx context.Context, target string) ([]byte, error) {
	p.got = target
	return p.body, p.err
}

const resultsPage = `<html><body>
<div class="tile">
  <a class="plink" href="/p/amazfit-gts-4?utm_source=search">
    <span class="pname">Amazfit GTS 4 Smartwatch</span></a>
  <span class="pprice">₹12,490</span>
  <img class="pimg" src="https://img.example.in/gts4.jpg">
  <span class="prating">4.3 out of 5</span>
</div>
<div class="tile">
  <a class="plink" href="/p/strap"><span class="pname">Silicone strap</span></a>
  <span class="pprice">₹299</span>
</div>
<div class="tile">
  <a class="plink" href="/p/amazfit-bip-5">
    <span class="pname">Amazfit Bip 5 Smartwatch</span></a>
  <span class="pprice">₹8,999</span>
</div>
</body></html>`

func testMarketplace(strategy fetch.Strategy) *Marketplace {
	return &Marketplace{
		SourceID:   "shopsite",
		Domains:    map[string]string{"IN": "www.shopsite.in"},
		SearchPath: "/search?q=%s",
		Selectors: Selectors{
			Item:   "div.tile",
			Link:   "a.plink",
			Title:  "span.pname",
			Price:  "span.pprice",
			Image:  "img.pimg",
			Rating: "span.prating",
		},
		Fetcher: &fetch.Chain{Direct: strategy, HeavyHost: func(string) bool { return false }},
	}
}

func TestMarketplace_ParsesTiles(t *testing.T) {
	strategy := &pageStrategy{body: []byte(resultsPage)}
	m := testMarketplace(strategy)

	got, err := m.Search(context.Background(), "IN", "amazfit smartwatch")
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if strategy.got != "https://www.shopsite.in/search?q=amazfit+smartwatch" {
		t.Fatalf("unexpected search url: %q", strategy.got)
	}
	// The strap tile fails the query filter.
	if len(got) != 2 {
		t.Fatalf("expected 2 tiles, got %d: %+v", len(got), got)
	}
	first := got[0]
	if first.ProductName != "Amazfit GTS 4 Smartwatch" || first.RawPriceText != "₹12,490" {
		t.Fatalf("unexpected tile: %+v", first)
	}
	if first.Link != "https://www.shopsite.in/p/amazfit-gts-4" {
		t.Fatalf("relative link not resolved and cleaned: %q", first.Link)
	}
	if first.ImageURL != "https://img.example.in/gts4.jpg" {
		t.Fatalf("image not captured: %q", first.ImageURL)
	}
	if first.Info["rating"] != "4.3 out of 5" {
		t.Fatalf("rating not captured: %+v", first.Info)
	}
}

func TestMarketplace_EscalatesThinPages(t *testing.T) {
	page := `<html><head>
<meta property="og:title" content="Amazfit GTS 4">
<meta property="product:price:amount" content="149.00">
</head><body><div>nothing selectable</div></body></html>`
	m := testMarketplace(&pageStrategy{body: []byte(page)})
	m.Extractor = &extract.Extractor{MinCandidates: 1}
	m.MinTiles = 1

	got, err := m.Search(context.Background(), "IN", "amazfit")
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(got) != 1 || got[0].RawPriceText != "149.00" {
		t.Fatalf("expected whole-page extraction fallback: %+v", got)
	}
}

func TestMarketplace_CountryWithoutDomainFails(t *testing.T) {
	m := testMarketplace(&pageStrategy{body: []byte(resultsPage)})
	if _, err := m.Search(context.Background(), "US", "amazfit"); err == nil {
		t.Fatalf("expected error for unserved country")
	}
}

func TestMarketplace_FetchFailurePropagates(t *testing.T) {
	m := testMarketplace(&pageStrategy{err: errors.New("blocked")})
	if _, err := m.Search(context.Background(), "IN", "amazfit"); !errors.Is(err, fetch.ErrExhausted) {
		t.Fatalf("expected wrapped chain failure, got %v", err)
	}
}

func TestMarketplace_Countries(t *testing.T) {
	m := testMarketplace(nil)
	got := m.Countries()
	if len(got) != 1 || got[0] != "IN" {
		t.Fatalf("unexpected countries: %v", got)
	}
	m.DefaultDomain = "www.shopsite.com"
	got = m.Countries()
	if len(got) != 1 || got[0] != CountryAll {
		t.Fatalf("default domain must make the source global: %v", got)
	}
}
