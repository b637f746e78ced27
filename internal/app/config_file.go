package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/gopricecmp/internal/source"
)

// SourceSpec declares one marketplace source. The selector fields mirror
// source.Selectors so operators can keep up with site restyles without a
// rebuild.
type SourceSpec struct {
	ID            string            `yaml:"id" json:"id"`
	Domains       map[string]string `yaml:"domains" json:"domains"`
	DefaultDomain string            `yaml:"defaultDomain" json:"defaultDomain"`
	SearchPath    string            `yaml:"searchPath" json:"searchPath"`
	Selectors     source.Selectors  `yaml:"selectors" json:"selectors"`
}

// EstimateSpec is one row of the price estimation table: when every token
// appears in the listing or query, the price applies to unresolved listings.
type EstimateSpec struct {
	Tokens []string `yaml:"tokens" json:"tokens"`
	Price  float64  `yaml:"price" json:"price"`
}

// FileConfig represents the single-file configuration schema.
// Nested sections improve readability and map naturally to flags/env.
type FileConfig struct {
	Listen string `yaml:"listen" json:"listen"`

	LLM struct {
		BaseURL string `yaml:"base" json:"base"`
		Model   string `yaml:"model" json:"model"`
		APIKey  string `yaml:"key" json:"key"`
	} `yaml:"llm" json:"llm"`

	CustomSearch struct {
		URL string `yaml:"url" json:"url"`
		Key string `yaml:"key" json:"key"`
		CX  string `yaml:"cx" json:"cx"`
	} `yaml:"customSearch" json:"customSearch"`

	Proxy struct {
		URL string `yaml:"url" json:"url"`
		Key string `yaml:"key" json:"key"`
	} `yaml:"proxy" json:"proxy"`

	Browser struct {
		Enable bool   `yaml:"enable" json:"enable"`
		Bin    string `yaml:"bin" json:"bin"`
	} `yaml:"browser" json:"browser"`

	Limits struct {
		MinCandidates int `yaml:"minCandidates" json:"minCandidates"`
		MaxAIChars    int `yaml:"maxAIChars" json:"maxAIChars"`
		PerSource     int `yaml:"perSource" json:"perSource"`
		// PerSourceTimeout is a Go duration string, e.g. "25s".
		PerSourceTimeout string  `yaml:"perSourceTimeout" json:"perSourceTimeout"`
		RateRPS          float64 `yaml:"rateRPS" json:"rateRPS"`
	} `yaml:"limits" json:"limits"`

	DefaultCurrency string            `yaml:"defaultCurrency" json:"defaultCurrency"`
	CountryCurrency map[string]string `yaml:"countryCurrency" json:"countryCurrency"`
	UserAgent       string            `yaml:"userAgent" json:"userAgent"`
	HeavyHosts      []string          `yaml:"heavyHosts" json:"heavyHosts"`

	Sources   []SourceSpec   `yaml:"sources" json:"sources"`
	Estimates []EstimateSpec `yaml:"estimates" json:"estimates"`

	Verbose      bool `yaml:"verbose" json:"verbose"`
	DebugVerbose bool `yaml:"debugVerbose" json:"debugVerbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from FileConfig into cfg for any fields that
// are currently unset/zero in cfg. Flags should already have been parsed; this
// function lets file config supply defaults while preserving explicit flags.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}

	if cfg.ListenAddr == "" && fc.Listen != "" {
		cfg.ListenAddr = fc.Listen
	}

	if cfg.LLMBaseURL == "" && fc.LLM.BaseURL != "" {
		cfg.LLMBaseURL = fc.LLM.BaseURL
	}
	if cfg.LLMModel == "" && fc.LLM.Model != "" {
		cfg.LLMModel = fc.LLM.Model
	}
	if cfg.LLMAPIKey == "" && fc.LLM.APIKey != "" {
		cfg.LLMAPIKey = fc.LLM.APIKey
	}

	if cfg.CustomSearchURL == "" && fc.CustomSearch.URL != "" {
		cfg.CustomSearchURL = fc.CustomSearch.URL
	}
	if cfg.CustomSearchKey == "" && fc.CustomSearch.Key != "" {
		cfg.CustomSearchKey = fc.CustomSearch.Key
	}
	if cfg.CustomSearchCX == "" && fc.CustomSearch.CX != "" {
		cfg.CustomSearchCX = fc.CustomSearch.CX
	}

	if cfg.ProxyURL == "" && fc.Proxy.URL != "" {
		cfg.ProxyURL = fc.Proxy.URL
	}
	if cfg.ProxyKey == "" && fc.Proxy.Key != "" {
		cfg.ProxyKey = fc.Proxy.Key
	}
	if !cfg.BrowserEnable && fc.Browser.Enable {
		cfg.BrowserEnable = true
	}
	if cfg.BrowserBin == "" && fc.Browser.Bin != "" {
		cfg.BrowserBin = fc.Browser.Bin
	}

	if cfg.MinCandidates == 0 && fc.Limits.MinCandidates > 0 {
		cfg.MinCandidates = fc.Limits.MinCandidates
	}
	if cfg.MaxAIChars == 0 && fc.Limits.MaxAIChars > 0 {
		cfg.MaxAIChars = fc.Limits.MaxAIChars
	}
	if cfg.PerSourceLimit == 0 && fc.Limits.PerSource > 0 {
		cfg.PerSourceLimit = fc.Limits.PerSource
	}
	if cfg.PerSourceTimeout == 0 && fc.Limits.PerSourceTimeout != "" {
		if d, err := time.ParseDuration(fc.Limits.PerSourceTimeout); err == nil && d > 0 {
			cfg.PerSourceTimeout = d
		}
	}
	if cfg.RateLimitRPS == 0 && fc.Limits.RateRPS > 0 {
		cfg.RateLimitRPS = fc.Limits.RateRPS
	}

	if cfg.DefaultCurrency == "" && fc.DefaultCurrency != "" {
		cfg.DefaultCurrency = fc.DefaultCurrency
	}
	if len(cfg.CurrencyOverrides) == 0 && len(fc.CountryCurrency) > 0 {
		cfg.CurrencyOverrides = upperKeys(fc.CountryCurrency)
	}
	if cfg.UserAgent == "" && fc.UserAgent != "" {
		cfg.UserAgent = fc.UserAgent
	}
	if len(cfg.HeavyHosts) == 0 && len(fc.HeavyHosts) > 0 {
		cfg.HeavyHosts = append([]string{}, fc.HeavyHosts...)
	}
	if len(cfg.Sources) == 0 && len(fc.Sources) > 0 {
		cfg.Sources = append([]SourceSpec{}, fc.Sources...)
	}
	if len(cfg.Estimates) == 0 && len(fc.Estimates) > 0 {
		cfg.Estimates = append([]EstimateSpec{}, fc.Estimates...)
	}

	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}
	if !cfg.DebugVerbose && fc.DebugVerbose {
		cfg.DebugVerbose = true
	}
}
