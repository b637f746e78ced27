package source

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hyperifyio/gopricecmp/internal/extract"
	"github.com/hyperifyio/gopricecmp/internal/fetch"
	"github.com/hyperifyio/gopricecmp/internal/pricing"
)

// Selectors names the CSS paths for one marketplace's search result tiles.
// Marketplaces restyle constantly, so each field accepts a comma list of
// alternatives; goquery matches any of them.
type Selectors struct {
	Item    string `yaml:"item"`
	Link    string `yaml:"link"`
	Title   string `yaml:"title"`
	Price   string `yaml:"price"`
	Image   string `yaml:"image"`
	Rating  string `yaml:"rating"`
	Reviews string `yaml:"reviews"`
}

// Marketplace scrapes an e-commerce site's search results page. The fetch
// chain handles anti-bot hostility; selector extraction handles the happy
// path and the shared Extractor takes over when the tiles give too little.
type Marketplace struct {
	SourceID string
	// Domains maps upper-case country codes to the site host for that
	// market, e.g. "IN" -> "www.amazon.in".
	Domains map[string]string
	// DefaultDomain serves countries missing from Domains. Empty means the
	// source only serves the listed countries.
	DefaultDomain string
	// SearchPath is the search URL path with %s for the escaped query.
	SearchPath string
	Selectors  Selectors
	Fetcher    *fetch.Chain
	Extractor  *extract.Extractor
	// Limit caps result tiles per page. Zero means 10.
	Limit int
	// MinTiles is the escalation threshold: fewer usable tiles than this
	// sends the whole page through the tiered extractor. Zero means 3.
	MinTiles int
}

func (m *Marketplace) ID() string { return m.SourceID }

func (m *Marketplace) Countries() []string {
	if m.DefaultDomain != "" {
		return []string{CountryAll}
	}
	out := make([]string, 0, len(m.Domains))
	for c := range m.Domains {
		out = append(out, c)
	}
	return out
}

func (m *Marketplace) searchURL(country, query string) (string, error) {
	host, ok := m.Domains[strings.ToUpper(strings.TrimSpace(country))]
	if !ok {
		host = m.DefaultDomain
	}
	if host == "" {
		return "", fmt.Errorf("source %s has no domain for country %q", m.SourceID, country)
	}
	path := m.SearchPath
	if path == "" {
		path = "/search?q=%s"
	}
	return "https://" + host + fmt.Sprintf(path, url.QueryEscape(query)), nil
}

func (m *Marketplace) Search(ctx context.Context, country, query string) ([]pricing.Candidate, error) {
	target, err := m.searchURL(country, query)
	if err != nil {
		return nil, err
	}
	payload, err := m.Fetcher.Fetch(ctx, target)
	if err != nil {
		return nil, err
	}

	out := m.fromTiles(payload.Body, target, query)

	minTiles := m.MinTiles
	if minTiles <= 0 {
		minTiles = 3
	}
	if len(out) < minTiles && m.Extractor != nil {
		for _, c := range m.Extractor.Extract(ctx, payload.Body, m.SourceID, target, query) {
			if c.RawPriceText == "" {
				continue
			}
			out = append(out, c)
		}
	}
	return out, nil
}

// fromTiles walks the result tiles with the configured selectors.
func (m *Marketplace) fromTiles(body []byte, pageURL, query string) []pricing.Candidate {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}
	limit := m.Limit
	if limit <= 0 {
		limit = 10
	}

	base, _ := url.Parse(pageURL)
	var out []pricing.Candidate
	doc.Find(m.Selectors.Item).EachWithBreak(func(_ int, tile *goquery.Selection) bool {
		name := strings.TrimSpace(tile.Find(m.Selectors.Title).First().Text())
		if name == "" || !matchesQuery(name, query) {
			return true
		}
		link, _ := tile.Find(m.Selectors.Link).First().Attr("href")
		link = absoluteLink(base, link)
		if link == "" {
			return true
		}

		c := pricing.Candidate{
			ProductName:  name,
			RawPriceText: strings.TrimSpace(tile.Find(m.Selectors.Price).First().Text()),
			SourceID:     m.SourceID,
			Link:         cleanLink(link),
		}
		if img, ok := tile.Find(m.Selectors.Image).First().Attr("src"); ok {
			c.ImageURL = img
		}
		c.SetInfo("rating", strings.TrimSpace(tile.Find(m.Selectors.Rating).First().Text()))
		c.SetInfo("reviews", strings.TrimSpace(tile.Find(m.Selectors.Reviews).First().Text()))

		out = append(out, c)
		return len(out) < limit
	})
	return out
}

func absoluteLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
