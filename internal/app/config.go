package app

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration for the application.
type Config struct {
	// HTTP server
	ListenAddr   string
	RateLimitRPS float64

	// Google Custom Search
	CustomSearchURL string
	CustomSearchKey string
	CustomSearchCX  string

	// Fetching
	ProxyURL      string
	ProxyKey      string
	BrowserEnable bool
	BrowserBin    string
	UserAgent     string
	HeavyHosts    []string

	// LLM
	LLMBaseURL string
	LLMModel   string
	LLMAPIKey  string

	// Extraction / escalation
	MinCandidates int
	MaxAIChars    int

	// Orchestration
	PerSourceTimeout time.Duration
	PerSourceLimit   int
	DefaultCurrency  string
	// CurrencyOverrides maps country codes to currencies ahead of the
	// built-in table.
	CurrencyOverrides map[string]string

	// Marketplace sources and estimation rules, normally supplied by the
	// config file. Empty slices fall back to built-in defaults.
	Sources   []SourceSpec
	Estimates []EstimateSpec

	// Behavior
	Verbose      bool
	DebugVerbose bool
}

// ApplyEnvToConfig populates unset fields of cfg from environment variables.
// Explicit cfg values take precedence over env.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}

	setString := func(dst *string, envKey string) {
		if *dst == "" {
			*dst = os.Getenv(envKey)
		}
	}
	setString(&cfg.LLMBaseURL, "LLM_BASE_URL")
	setString(&cfg.LLMModel, "LLM_MODEL")
	setString(&cfg.LLMAPIKey, "LLM_API_KEY")
	setString(&cfg.CustomSearchKey, "CUSTOM_SEARCH_KEY")
	setString(&cfg.CustomSearchCX, "CUSTOM_SEARCH_CX")
	setString(&cfg.ProxyURL, "SCRAPER_PROXY_URL")
	setString(&cfg.ProxyKey, "SCRAPER_PROXY_KEY")
	setString(&cfg.BrowserBin, "BROWSER_BIN")
	setString(&cfg.ListenAddr, "LISTEN_ADDR")
	setString(&cfg.DefaultCurrency, "DEFAULT_CURRENCY")

	if cfg.PerSourceTimeout == 0 {
		if s := os.Getenv("PER_SOURCE_TIMEOUT"); s != "" {
			if d, err := time.ParseDuration(s); err == nil {
				cfg.PerSourceTimeout = d
			}
		}
	}
	if cfg.RateLimitRPS == 0 {
		if s := os.Getenv("RATE_LIMIT_RPS"); s != "" {
			if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
				cfg.RateLimitRPS = f
			}
		}
	}

	setBool := func(dst *bool, envKey string) {
		if *dst {
			return
		}
		switch strings.ToLower(strings.TrimSpace(os.Getenv(envKey))) {
		case "1", "true", "yes", "on":
			*dst = true
		}
	}
	setBool(&cfg.BrowserEnable, "BROWSER_ENABLE")
	setBool(&cfg.Verbose, "VERBOSE")
	setBool(&cfg.DebugVerbose, "DEBUG_VERBOSE")
}

// ValidateConfig performs minimal schema validation for required settings.
// A search run needs at least one way to find listings.
func ValidateConfig(cfg Config) error {
	if cfg.CustomSearchKey == "" && cfg.CustomSearchCX != "" {
		return errors.New("config: custom search cx set without key")
	}
	if cfg.CustomSearchKey != "" && cfg.CustomSearchCX == "" {
		return errors.New("config: custom search key set without cx")
	}
	if cfg.ProxyURL != "" && cfg.ProxyKey == "" {
		return errors.New("config: proxy url set without key")
	}
	if cfg.MinCandidates < 0 || cfg.MaxAIChars < 0 || cfg.PerSourceLimit < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	if cfg.PerSourceTimeout < 0 {
		return errors.New("config: negative per-source timeout")
	}
	return nil
}
