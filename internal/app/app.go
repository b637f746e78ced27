package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/gopricecmp/internal/aiassist"
	"github.com/hyperifyio/gopricecmp/internal/estimate"
	"github.com/hyperifyio/gopricecmp/internal/extract"
	"github.com/hyperifyio/gopricecmp/internal/fetch"
	"github.com/hyperifyio/gopricecmp/internal/pricing"
	"github.com/hyperifyio/gopricecmp/internal/rank"
	"github.com/hyperifyio/gopricecmp/internal/source"
	"github.com/hyperifyio/gopricecmp/internal/validate"
)

// ErrNoApplicableSources is returned when no registered source serves the
// requested country. Per the exit code policy this maps to a client error,
// not a server failure.
var ErrNoApplicableSources = fmt.Errorf("no sources applicable to country")

// defaultPerSourceTimeout bounds one source's fetch, extraction and AI
// escalation together. Slow marketplaces must not hold the whole search.
const defaultPerSourceTimeout = 25 * time.Second

type App struct {
	cfg       Config
	ai        *openai.Client
	fetcher   *fetch.Chain
	browser   *fetch.Browser
	extractor *extract.Extractor
	estimator *estimate.Estimator
	registry  *source.Registry
}

func New(ctx context.Context, cfg Config) (*App, error) {
	a := &App{cfg: cfg, registry: &source.Registry{}}

	if cfg.LLMModel != "" && (cfg.LLMAPIKey != "" || cfg.LLMBaseURL != "") {
		transportCfg := openai.DefaultConfig(cfg.LLMAPIKey)
		if cfg.LLMBaseURL != "" {
			transportCfg.BaseURL = cfg.LLMBaseURL
		}
		transportCfg.HTTPClient = newHighThroughputHTTPClient()
		a.ai = openai.NewClientWithConfig(transportCfg)

		// Quick connectivity check by listing models. Best effort: an
		// unreachable collaborator degrades extraction, it does not block
		// startup.
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if models, err := a.ai.ListModels(pctx); err != nil {
			log.Warn().Err(err).Msg("LLM model list failed; continuing")
		} else if len(models.Models) == 0 {
			log.Warn().Msg("LLM returned zero models")
		} else {
			log.Info().Int("count", len(models.Models)).Msg("LLM models available")
		}
	}

	a.fetcher = a.buildFetchChain()
	a.extractor = &extract.Extractor{
		MinCandidates: cfg.MinCandidates,
		MaxAIChars:    cfg.MaxAIChars,
	}
	if a.ai != nil {
		a.extractor.AI = &aiassist.Extractor{Client: a.ai, Model: cfg.LLMModel}
	}
	a.estimator = estimate.New(estimateRules(cfg.Estimates))
	a.buildRegistry()

	log.Debug().
		Int("sources", a.registry.Len()).
		Bool("ai", a.ai != nil).
		Bool("proxy", cfg.ProxyURL != "").
		Bool("browser", cfg.BrowserEnable).
		Msg("app initialized")
	return a, nil
}

// Close releases the shared headless browser, if one was ever launched.
func (a *App) Close() {
	if a.browser != nil {
		a.browser.Close()
	}
}

// Registry exposes the source registry for diagnostic tooling.
func (a *App) Registry() *source.Registry { return a.registry }

func (a *App) buildFetchChain() *fetch.Chain {
	chain := &fetch.Chain{
		Direct: &fetch.Direct{
			HTTPClient: newHighThroughputHTTPClient(),
			UserAgent:  a.cfg.UserAgent,
		},
		HeavyHost: heavyHostMatcher(a.cfg.HeavyHosts),
	}
	if a.cfg.ProxyURL != "" && a.cfg.ProxyKey != "" {
		chain.Proxy = &fetch.Proxy{
			BaseURL:    a.cfg.ProxyURL,
			APIKey:     a.cfg.ProxyKey,
			HTTPClient: newHighThroughputHTTPClient(),
			UserAgent:  a.cfg.UserAgent,
		}
	}
	if a.cfg.BrowserEnable {
		a.browser = &fetch.Browser{Bin: a.cfg.BrowserBin}
		chain.Browser = a.browser
	}
	return chain
}

func (a *App) buildRegistry() {
	if a.cfg.CustomSearchKey != "" && a.cfg.CustomSearchCX != "" {
		a.registry.Add(&source.CustomSearch{
			BaseURL:    a.cfg.CustomSearchURL,
			APIKey:     a.cfg.CustomSearchKey,
			EngineID:   a.cfg.CustomSearchCX,
			HTTPClient: newHighThroughputHTTPClient(),
			Extractor:  a.extractor,
			Limit:      a.cfg.PerSourceLimit,
			MinPriced:  a.cfg.MinCandidates,
		})
	}
	specs := a.cfg.Sources
	if len(specs) == 0 {
		specs = defaultSourceSpecs()
	}
	for _, spec := range specs {
		if spec.ID == "" {
			log.Warn().Msg("skipping source spec without id")
			continue
		}
		a.registry.Add(&source.Marketplace{
			SourceID:      spec.ID,
			Domains:       upperKeys(spec.Domains),
			DefaultDomain: spec.DefaultDomain,
			SearchPath:    spec.SearchPath,
			Selectors:     spec.Selectors,
			Fetcher:       a.fetcher,
			Extractor:     a.extractor,
			Limit:         a.cfg.PerSourceLimit,
			MinTiles:      a.cfg.MinCandidates,
		})
	}
}

// Search fans one query out to every source serving the country, then
// validates, estimates and ranks the merged candidates. Source failures are
// isolated: a search only errors when the request itself is unusable.
func (a *App) Search(ctx context.Context, country, query string) ([]pricing.Candidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("empty query")
	}
	country = strings.ToUpper(strings.TrimSpace(country))
	if country == "" {
		country = "US"
	}

	providers := a.registry.ForCountry(country)
	if len(providers) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoApplicableSources, country)
	}

	timeout := a.cfg.PerSourceTimeout
	if timeout <= 0 {
		timeout = defaultPerSourceTimeout
	}

	// Indexed collection keeps the merge order equal to launch order, so the
	// final ranking is deterministic no matter which source finishes first.
	groups := make([][]pricing.Candidate, len(providers))
	var wg sync.WaitGroup
	for i, p := range providers {
		wg.Add(1)
		go func(i int, p source.Provider) {
			defer wg.Done()
			sctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			start := time.Now()
			cands, err := p.Search(sctx, country, query)
			if err != nil {
				log.Warn().Err(err).Str("source", p.ID()).Dur("elapsed", time.Since(start)).Msg("source failed; skipping")
				return
			}
			log.Debug().Str("source", p.ID()).Int("candidates", len(cands)).Dur("elapsed", time.Since(start)).Msg("source done")
			groups[i] = cands
		}(i, p)
	}
	wg.Wait()

	fallbackCurrency, ok := a.cfg.CurrencyOverrides[country]
	if !ok {
		fallbackCurrency = pricing.CurrencyForCountry(country, a.cfg.DefaultCurrency)
	}
	merged := make([]pricing.Candidate, 0)
	for _, g := range groups {
		for _, c := range g {
			if !validate.Candidate(&c, fallbackCurrency) {
				log.Debug().Str("source", c.SourceID).Str("raw", c.RawPriceText).Msg("candidate rejected")
				continue
			}
			if !c.Resolved {
				a.estimator.Apply(&c, query)
			}
			merged = append(merged, c)
		}
	}
	rank.Sort(merged)

	log.Info().
		Str("country", country).
		Str("query", query).
		Int("sources", len(providers)).
		Int("results", len(merged)).
		Msg("search complete")
	return merged, nil
}

func estimateRules(specs []EstimateSpec) []estimate.Rule {
	rules := make([]estimate.Rule, 0, len(specs))
	for _, s := range specs {
		rules = append(rules, estimate.Rule{Tokens: s.Tokens, Price: s.Price})
	}
	return rules
}

func upperKeys(m map[string]string) map[string]string {
	if len(m) == 0 {
		return m
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return out
}

// heavyHostMatcher reports whether a host belongs to a site known to block
// plain GETs, which routes the fetch through the expensive strategies first.
func heavyHostMatcher(patterns []string) func(host string) bool {
	if len(patterns) == 0 {
		patterns = defaultHeavyHosts
	}
	lowered := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			lowered = append(lowered, p)
		}
	}
	return func(host string) bool {
		for _, p := range lowered {
			if strings.Contains(host, p) {
				return true
			}
		}
		return false
	}
}

var defaultHeavyHosts = []string{
	"amazon.",
	"flipkart.",
	"walmart.",
	"bestbuy.",
	"ebay.",
}
