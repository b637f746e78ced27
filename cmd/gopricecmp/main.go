package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/gopricecmp/internal/app"
	"github.com/hyperifyio/gopricecmp/internal/httpapi"
)

func main() {
	// .env is optional; explicit env always wins over the file.
	_ = godotenv.Load()

	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		configPath string
		listenAddr string
		query      string
		country    string

		csKey string
		csCX  string
		csURL string

		proxyURL   string
		proxyKey   string
		browserOn  bool
		browserBin string

		llmBaseURL string
		llmModel   string
		llmKey     string

		minCandidates int
		maxAIChars    int
		perSource     int
		perSourceTO   time.Duration
		currency      string
		rateRPS       float64
		origins       string
		verbose       bool
	)

	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "Path to YAML/JSON config file")
	flag.StringVar(&listenAddr, "listen", "", "HTTP listen address, e.g. :8080")
	flag.StringVar(&query, "query", "", "One-shot mode: search this query and print JSON instead of serving")
	flag.StringVar(&country, "country", "US", "Country code for one-shot mode")
	flag.StringVar(&csKey, "customsearch.key", os.Getenv("CUSTOM_SEARCH_KEY"), "Google Custom Search API key")
	flag.StringVar(&csCX, "customsearch.cx", os.Getenv("CUSTOM_SEARCH_CX"), "Google Custom Search engine id")
	flag.StringVar(&csURL, "customsearch.url", "", "Custom Search endpoint override (for testing)")
	flag.StringVar(&proxyURL, "proxy.url", os.Getenv("SCRAPER_PROXY_URL"), "Scraping relay base URL")
	flag.StringVar(&proxyKey, "proxy.key", os.Getenv("SCRAPER_PROXY_KEY"), "Scraping relay API key")
	flag.BoolVar(&browserOn, "browser", false, "Enable headless browser fetching")
	flag.StringVar(&browserBin, "browser.bin", os.Getenv("BROWSER_BIN"), "Chromium binary path override")
	flag.StringVar(&llmBaseURL, "llm.base", os.Getenv("LLM_BASE_URL"), "OpenAI-compatible base URL")
	flag.StringVar(&llmModel, "llm.model", os.Getenv("LLM_MODEL"), "Model name for AI extraction")
	flag.StringVar(&llmKey, "llm.key", os.Getenv("LLM_API_KEY"), "API key for OpenAI-compatible server")
	flag.IntVar(&minCandidates, "min.candidates", 0, "Extraction escalation threshold (0 = default 3)")
	flag.IntVar(&maxAIChars, "max.aiChars", 0, "Max payload characters sent to the AI tier (0 = default 15000)")
	flag.IntVar(&perSource, "max.perSource", 0, "Max results per source (0 = default 10)")
	flag.DurationVar(&perSourceTO, "timeout.perSource", 0, "Per-source time budget (0 = default 25s)")
	flag.StringVar(&currency, "currency", "", "Default currency for countries outside the built-in table")
	flag.Float64Var(&rateRPS, "rate.rps", 0, "HTTP rate limit, requests per second per client (0 = default 5)")
	flag.StringVar(&origins, "cors.origins", os.Getenv("ALLOWED_ORIGINS"), "Comma-separated CORS origins (empty allows all)")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.Parse()

	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg := app.Config{
		ListenAddr:       listenAddr,
		RateLimitRPS:     rateRPS,
		CustomSearchURL:  csURL,
		CustomSearchKey:  csKey,
		CustomSearchCX:   csCX,
		ProxyURL:         proxyURL,
		ProxyKey:         proxyKey,
		BrowserEnable:    browserOn,
		BrowserBin:       browserBin,
		LLMBaseURL:       llmBaseURL,
		LLMModel:         llmModel,
		LLMAPIKey:        llmKey,
		MinCandidates:    minCandidates,
		MaxAIChars:       maxAIChars,
		PerSourceLimit:   perSource,
		PerSourceTimeout: perSourceTO,
		DefaultCurrency:  currency,
		Verbose:          verbose,
	}

	if strings.TrimSpace(configPath) != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", configPath).Msg("load config file")
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	app.ApplyEnvToConfig(&cfg)
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if err := app.ValidateConfig(cfg); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if err := run(cfg, query, country, origins); err != nil {
		log.Error().Err(err).Msg("run failed")
		if errors.Is(err, app.ErrNoApplicableSources) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(cfg app.Config, query, country, origins string) error {
	ctx := context.Background()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	// One-shot mode for scripting and debugging.
	if strings.TrimSpace(query) != "" {
		results, err := a.Search(ctx, country, query)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	srv := &httpapi.Server{
		Searcher:       a,
		RateLimitRPS:   cfg.RateLimitRPS,
		AllowedOrigins: splitList(origins),
	}
	log.Info().Str("addr", cfg.ListenAddr).Msg("listening")
	return http.ListenAndServe(cfg.ListenAddr, srv.Handler())
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
