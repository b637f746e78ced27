package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/gopricecmp/internal/extract"
	"github.com/hyperifyio/gopricecmp/internal/pricing"
)

// DefaultCustomSearchURL is the Google Custom Search JSON API endpoint.
const DefaultCustomSearchURL = "https://www.googleapis.com/customsearch/v1"

// CustomSearch queries a programmable search engine and mines its structured
// pagemap data for prices, falling back to pattern extraction over titles and
// snippets and finally to the AI collaborator when too few hits carry prices.
type CustomSearch struct {
	BaseURL    string // empty means DefaultCustomSearchURL
	APIKey     string
	EngineID   string
	HTTPClient *http.Client
	Extractor  *extract.Extractor
	// Limit caps requested hits per query. Zero means 10.
	Limit int
	// MinPriced is the AI escalation threshold: when fewer hits than this
	// carry a price, the collaborator is asked. Zero means 3.
	MinPriced int
	// CountryList restricts the source to specific countries. Empty means
	// global.
	CountryList []string
}

func (s *CustomSearch) ID() string { return "customsearch" }

func (s *CustomSearch) Countries() []string {
	if len(s.CountryList) == 0 {
		return []string{CountryAll}
	}
	return s.CountryList
}

func (s *CustomSearch) Search(ctx context.Context, country, query string) ([]pricing.Candidate, error) {
	if s.APIKey == "" || s.EngineID == "" {
		return nil, fmt.Errorf("custom search not configured")
	}
	base := s.BaseURL
	if base == "" {
		base = DefaultCustomSearchURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	limit := s.Limit
	if limit <= 0 {
		limit = 10
	}
	q := u.Query()
	q.Set("key", s.APIKey)
	q.Set("cx", s.EngineID)
	// Steer the engine toward shop pages rather than reviews.
	q.Set("q", query+" price buy online")
	q.Set("gl", strings.ToLower(country))
	q.Set("num", fmt.Sprintf("%d", limit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	hc := s.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("custom search status: %d", resp.StatusCode)
	}
	var sr csResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, err
	}

	out := make([]pricing.Candidate, 0, len(sr.Items))
	for _, item := range sr.Items {
		c := s.candidateFromItem(item)
		out = append(out, c)
	}

	out = s.escalateToAI(ctx, sr.Items, query, out)
	return out, nil
}

func (s *CustomSearch) candidateFromItem(item csItem) pricing.Candidate {
	product := firstMap(item.Pagemap.Product)
	offer := firstMap(item.Pagemap.Offer)
	metatags := firstMap(item.Pagemap.Metatags)

	name := str(product, "name")
	if name == "" {
		name = str(metatags, "og:title")
	}
	if name == "" {
		name = item.Title
	}

	c := pricing.Candidate{
		ProductName: name,
		SourceID:    item.DisplayLink,
		Link:        cleanLink(item.Link),
	}
	if c.SourceID == "" {
		c.SourceID = s.ID()
	}
	c.SetInfo("snippet", item.Snippet)
	c.SetInfo("brand", firstNonEmpty(str(product, "brand"), str(metatags, "og:brand")))
	c.SetInfo("rating", str(product, "ratingvalue"))
	c.SetInfo("reviews", str(product, "reviewcount"))
	c.ImageURL = s.imageFromPagemap(item)

	// Structured pagemap price first; highest trust.
	c.RawPriceText = firstNonEmpty(str(offer, "price"), str(product, "price"))
	c.Currency = firstNonEmpty(str(offer, "pricecurrency"), str(product, "pricecurrency"))
	if c.RawPriceText != "" {
		return c
	}

	// Pattern pass over the visible fields; first usable span wins.
	text := strings.Join([]string{item.Title, item.Snippet, str(metatags, "og:description")}, " ")
	if s.Extractor != nil {
		for _, pc := range s.Extractor.ExtractText(text, name, c.SourceID, c.Link) {
			if pc.RawPriceText == "" {
				continue
			}
			c.RawPriceText = pc.RawPriceText
			c.Currency = pc.Currency
			c.SetInfo("context", pc.Info["context"])
			break
		}
	}
	return c
}

func (s *CustomSearch) imageFromPagemap(item csItem) string {
	if img := str(firstMap(item.Pagemap.CseImage), "src"); img != "" {
		return img
	}
	if img := str(firstMap(item.Pagemap.ImageObject), "url"); img != "" {
		return img
	}
	return str(firstMap(item.Pagemap.Metatags), "og:image")
}

// escalateToAI asks the collaborator to mine the raw hits when too few
// candidates ended up with price text. Collaborator output merges in without
// duplicating links already present.
func (s *CustomSearch) escalateToAI(ctx context.Context, items []csItem, query string, out []pricing.Candidate) []pricing.Candidate {
	minPriced := s.MinPriced
	if minPriced <= 0 {
		minPriced = 3
	}
	priced := 0
	for _, c := range out {
		if c.RawPriceText != "" {
			priced++
		}
	}
	if priced >= minPriced || s.Extractor == nil || s.Extractor.AI == nil || len(items) == 0 {
		return out
	}

	digest := make([]map[string]string, 0, 5)
	for _, item := range items {
		if len(digest) == 5 {
			break
		}
		digest = append(digest, map[string]string{
			"title":   item.Title,
			"link":    item.Link,
			"snippet": item.Snippet,
			"source":  item.DisplayLink,
		})
	}
	payload, err := json.Marshal(digest)
	if err != nil {
		return out
	}
	extra, err := s.Extractor.AI.Extract(ctx, string(payload), DefaultCustomSearchURL, query)
	if err != nil {
		log.Warn().Err(err).Str("source", s.ID()).Msg("ai escalation failed")
		return out
	}
	seen := map[string]bool{}
	for _, c := range out {
		seen[c.Link] = true
	}
	for _, c := range extra {
		link := cleanLink(c.Link)
		if link != "" && seen[link] {
			continue
		}
		c.Link = link
		if c.SourceID == "" {
			c.SourceID = s.ID()
		}
		seen[link] = true
		out = append(out, c)
	}
	return out
}

type csResponse struct {
	Items []csItem `json:"items"`
}

type csItem struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Snippet     string `json:"snippet"`
	DisplayLink string `json:"displayLink"`
	Pagemap     struct {
		Product     []map[string]any `json:"product"`
		Offer       []map[string]any `json:"offer"`
		Metatags    []map[string]any `json:"metatags"`
		CseImage    []map[string]any `json:"cse_image"`
		ImageObject []map[string]any `json:"imageobject"`
	} `json:"pagemap"`
}

func firstMap(ms []map[string]any) map[string]any {
	if len(ms) == 0 {
		return nil
	}
	return ms[0]
}

func str(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
