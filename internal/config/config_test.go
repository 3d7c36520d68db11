package config

import (
	"strings"
	"testing"
	"time"

	"github.com/btraven00/plagcheck/internal/retriever"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default configuration is invalid: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Report.Threshold != 0.1 || cfg.Report.ExcerptWords != 50 {
		t.Errorf("unexpected report options %+v", cfg.Report)
	}

	if cfg.Search.MaxResults != 5 || cfg.Search.Provider != "scholar" {
		t.Errorf("unexpected search options %+v", cfg.Search)
	}

	if cfg.Query.Lines != 3 {
		t.Errorf("Query.Lines = %d", cfg.Query.Lines)
	}

	if cfg.Fetch.Timeout != 30*time.Second || cfg.Fetch.Workers != 1 {
		t.Errorf("unexpected fetch options %+v", cfg.Fetch)
	}

	if len(cfg.Sources.Fallback) != 2 {
		t.Errorf("Fallback = %v", cfg.Sources.Fallback)
	}

	if !cfg.OCR.OCR || cfg.OCR.Language != "eng" {
		t.Errorf("unexpected OCR options %+v", cfg.OCR)
	}
}

func TestLoadFromYAML(t *testing.T) {
	v := NewViper()
	v.SetConfigType("yaml")

	yaml := `
report:
  threshold: 0.25
search:
  provider: crossref
  max_results: 3
sources:
  fallback_policy: no-candidates
  fallback:
    - https://www.example.org/paper
fetch:
  timeout: 5s
  workers: 4
cleaner:
  keywords: [cookie, subscribe]
  readability: true
similarity:
  stem: true
`
	if err := v.ReadConfig(strings.NewReader(yaml)); err != nil {
		t.Fatalf("ReadConfig failed: %v", err)
	}

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Report.Threshold != 0.25 {
		t.Errorf("Threshold = %v", cfg.Report.Threshold)
	}

	opts := cfg.RetrieverOptions()
	if opts.Provider != "crossref" || opts.MaxResults != 3 || opts.Workers != 4 || !opts.Readability {
		t.Errorf("unexpected retriever options %+v", opts)
	}

	if opts.FallbackPolicy != retriever.FallbackNoCandidates {
		t.Errorf("FallbackPolicy = %s", opts.FallbackPolicy)
	}

	if opts.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v", opts.Timeout)
	}

	if len(opts.Fallback) != 1 || opts.Fallback[0] != "https://www.example.org/paper" {
		t.Errorf("Fallback = %v", opts.Fallback)
	}

	if _, ok := cfg.PageChrome().Match("Please SUBSCRIBE"); !ok {
		t.Error("custom cleaner keywords not applied")
	}

	if _, ok := cfg.PageChrome().Match("login"); ok {
		t.Error("custom cleaner keywords should replace the defaults")
	}

	if !cfg.Similarity.Stem || cfg.Similarity.Stopwords {
		t.Errorf("unexpected similarity options %+v", cfg.Similarity)
	}

	// Untouched sections keep their defaults
	if cfg.Query.Lines != 3 {
		t.Errorf("Query.Lines = %d", cfg.Query.Lines)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PLAGCHECK_REPORT_THRESHOLD", "0.3")
	t.Setenv("PLAGCHECK_SEARCH_PROVIDER", "none")
	t.Setenv("PLAGCHECK_FETCH_TIMEOUT", "2s")

	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Report.Threshold != 0.3 {
		t.Errorf("Threshold = %v", cfg.Report.Threshold)
	}

	if cfg.Search.Provider != "none" {
		t.Errorf("Provider = %q", cfg.Search.Provider)
	}

	if cfg.Fetch.Timeout != 2*time.Second {
		t.Errorf("Timeout = %v", cfg.Fetch.Timeout)
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
		errKey string
	}{
		{"threshold above one", func(c *Config) { c.Report.Threshold = 1.5 }, "report.threshold"},
		{"negative threshold", func(c *Config) { c.Report.Threshold = -0.1 }, "report.threshold"},
		{"unknown provider", func(c *Config) { c.Search.Provider = "bing" }, "search.provider"},
		{"zero results", func(c *Config) { c.Search.MaxResults = 0 }, "search.max_results"},
		{"bad policy", func(c *Config) { c.Sources.FallbackPolicy = "always" }, "sources.fallback_policy"},
		{"bad fallback URL", func(c *Config) { c.Sources.Fallback = []string{"ftp://x.org"} }, "sources.fallback"},
		{"zero workers", func(c *Config) { c.Fetch.Workers = 0 }, "fetch.workers"},
		{"zero timeout", func(c *Config) { c.Fetch.Timeout = 0 }, "fetch.timeout"},
		{"negative rate", func(c *Config) { c.Fetch.RateLimit = -1 }, "fetch.rate_limit"},
		{"bad output", func(c *Config) { c.Output = "xml" }, "output"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"zero query lines", func(c *Config) { c.Query.Lines = 0 }, "query.lines"},
		{"zero excerpt", func(c *Config) { c.Report.ExcerptWords = 0 }, "report.excerpt_words"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected a validation error")
			}

			if !strings.Contains(err.Error(), tc.errKey) {
				t.Errorf("error %q does not name %s", err, tc.errKey)
			}
		})
	}
}

func TestValidateReportsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Report.Threshold = 2
	cfg.Fetch.Workers = 0

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "report.threshold") || !strings.Contains(err.Error(), "fetch.workers") {
		t.Errorf("expected both errors, got %v", err)
	}
}
