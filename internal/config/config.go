// Package config holds the typed plagcheck configuration. Values come from
// defaults, an optional YAML file, PLAGCHECK_* environment variables and
// command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/btraven00/plagcheck/internal/discovery"
	"github.com/btraven00/plagcheck/internal/extractor"
	"github.com/btraven00/plagcheck/internal/logging"
	"github.com/btraven00/plagcheck/internal/report"
	"github.com/btraven00/plagcheck/internal/resilience"
	"github.com/btraven00/plagcheck/internal/retriever"
	"github.com/btraven00/plagcheck/internal/similarity"
	"github.com/btraven00/plagcheck/pkg/rules"
)

// EnvPrefix prefixes every environment variable, e.g. PLAGCHECK_REPORT_THRESHOLD.
const EnvPrefix = "PLAGCHECK"

// Config is the complete configuration.
type Config struct {
	Log        LogConfig          `mapstructure:"log"`
	Output     string             `mapstructure:"output"`
	OCR        extractor.Options  `mapstructure:"ocr"`
	Query      QueryConfig        `mapstructure:"query"`
	Search     SearchConfig       `mapstructure:"search"`
	Sources    SourcesConfig      `mapstructure:"sources"`
	Fetch      FetchConfig        `mapstructure:"fetch"`
	Resilience resilience.Config  `mapstructure:"resilience"`
	Cleaner    CleanerConfig      `mapstructure:"cleaner"`
	Similarity similarity.Options `mapstructure:"similarity"`
	Report     report.Options     `mapstructure:"report"`
	Metrics    MetricsConfig      `mapstructure:"metrics"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// QueryConfig configures the search query builder.
type QueryConfig struct {
	Keywords []string `mapstructure:"keywords"`
	Lines    int      `mapstructure:"lines"`
}

// SearchConfig configures the search provider.
type SearchConfig struct {
	Provider   string              `mapstructure:"provider"`
	Endpoints  retriever.Endpoints `mapstructure:"endpoints"`
	MaxResults int                 `mapstructure:"max_results"`
}

// SourcesConfig configures the fallback candidate sources.
type SourcesConfig struct {
	FallbackPolicy string   `mapstructure:"fallback_policy"`
	Fallback       []string `mapstructure:"fallback"`
}

// FetchConfig configures candidate retrieval.
type FetchConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
	RateLimit    float64       `mapstructure:"rate_limit"`
	Workers      int           `mapstructure:"workers"`
}

// CleanerConfig configures the content cleaner.
type CleanerConfig struct {
	Keywords    []string `mapstructure:"keywords"`
	Readability bool     `mapstructure:"readability"`
}

// MetricsConfig configures the metrics textfile.
type MetricsConfig struct {
	File string `mapstructure:"file"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log:    LogConfig{Level: "warn", Format: logging.FormatConsole},
		Output: report.FormatHuman,
		OCR:    extractor.DefaultOptions(),
		Query: QueryConfig{
			Lines:    discovery.DefaultQueryLines,
			Keywords: append([]string(nil), rules.QueryNoiseKeywords...),
		},
		Search: SearchConfig{
			Provider:   "scholar",
			MaxResults: retriever.DefaultMaxResults,
			Endpoints: retriever.Endpoints{
				Scholar:  retriever.DefaultScholarEndpoint,
				Crossref: retriever.DefaultCrossrefEndpoint,
			},
		},
		Sources: SourcesConfig{
			FallbackPolicy: string(retriever.FallbackNoDeclared),
			Fallback:       append([]string(nil), retriever.DefaultFallbackSources...),
		},
		Fetch: FetchConfig{
			Timeout:      retriever.DefaultTimeout,
			MaxBodyBytes: retriever.DefaultMaxBodyBytes,
			Workers:      1,
		},
		Resilience: resilience.DefaultConfig(),
		Cleaner: CleanerConfig{
			Keywords: append([]string(nil), rules.PageChromeKeywords...),
		},
		Similarity: similarity.Options{Language: "english"},
		Report:     report.DefaultOptions(),
	}
}

// NewViper returns a viper instance reading PLAGCHECK_* variables, with
// nested keys mapped as search.max_results -> PLAGCHECK_SEARCH_MAX_RESULTS.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	return v
}

// SetDefaults registers every key with its default so that environment
// variables are honoured by Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := Default()

	defaults := map[string]any{
		"log.level":                              d.Log.Level,
		"log.format":                             d.Log.Format,
		"output":                                 d.Output,
		"ocr.enabled":                            d.OCR.OCR,
		"ocr.language":                           d.OCR.Language,
		"ocr.dpi":                                d.OCR.DPI,
		"query.lines":                            d.Query.Lines,
		"query.keywords":                         d.Query.Keywords,
		"search.provider":                        d.Search.Provider,
		"search.max_results":                     d.Search.MaxResults,
		"search.endpoints.scholar":               d.Search.Endpoints.Scholar,
		"search.endpoints.crossref":              d.Search.Endpoints.Crossref,
		"sources.fallback_policy":                d.Sources.FallbackPolicy,
		"sources.fallback":                       d.Sources.Fallback,
		"fetch.timeout":                          d.Fetch.Timeout,
		"fetch.max_body_bytes":                   d.Fetch.MaxBodyBytes,
		"fetch.rate_limit":                       d.Fetch.RateLimit,
		"fetch.workers":                          d.Fetch.Workers,
		"resilience.max_attempts":                d.Resilience.RetryMaxAttempts,
		"resilience.initial_backoff":             d.Resilience.RetryInitialBackoff,
		"resilience.max_backoff":                 d.Resilience.RetryMaxBackoff,
		"resilience.multiplier":                  d.Resilience.RetryMultiplier,
		"resilience.breaker_enabled":             d.Resilience.BreakerEnabled,
		"resilience.breaker_min_requests":        d.Resilience.BreakerMinRequests,
		"resilience.breaker_failure_ratio":       d.Resilience.BreakerFailureRatio,
		"resilience.breaker_open_timeout":        d.Resilience.BreakerOpenTimeout,
		"resilience.breaker_half_open_max_calls": d.Resilience.BreakerHalfOpenMaxCalls,
		"cleaner.keywords":                       d.Cleaner.Keywords,
		"cleaner.readability":                    d.Cleaner.Readability,
		"similarity.language":                    d.Similarity.Language,
		"similarity.stopwords":                   d.Similarity.Stopwords,
		"similarity.stem":                        d.Similarity.Stem,
		"report.threshold":                       d.Report.Threshold,
		"report.excerpt_words":                   d.Report.ExcerptWords,
		"metrics.file":                           d.Metrics.File,
	}

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

var knownProviders = map[string]bool{
	"scholar": true, "google-scholar": true, "crossref": true, "none": true, "off": true,
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	if f := strings.ToLower(c.Log.Format); f != logging.FormatConsole && f != logging.FormatJSON {
		errs = append(errs, fmt.Errorf("log.format: %q is not console or json", c.Log.Format))
	}

	if !report.ValidFormat(c.Output) {
		errs = append(errs, fmt.Errorf("output: %q is not one of %s", c.Output, strings.Join(report.Formats, ", ")))
	}

	if c.OCR.DPI <= 0 {
		errs = append(errs, fmt.Errorf("ocr.dpi must be positive"))
	}

	if c.Query.Lines <= 0 {
		errs = append(errs, fmt.Errorf("query.lines must be positive"))
	}

	if !knownProviders[strings.ToLower(strings.TrimSpace(c.Search.Provider))] {
		errs = append(errs, fmt.Errorf("search.provider: unknown provider %q", c.Search.Provider))
	}

	if c.Search.MaxResults <= 0 {
		errs = append(errs, fmt.Errorf("search.max_results must be positive"))
	}

	switch retriever.FallbackPolicy(c.Sources.FallbackPolicy) {
	case retriever.FallbackNoDeclared, retriever.FallbackNoCandidates:
	default:
		errs = append(errs, fmt.Errorf("sources.fallback_policy: %q is not no-declared or no-candidates", c.Sources.FallbackPolicy))
	}

	for _, u := range c.Sources.Fallback {
		if !discovery.IsValidURL(u) {
			errs = append(errs, fmt.Errorf("sources.fallback: %q is not a valid URL", u))
		}
	}

	if c.Fetch.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("fetch.timeout must be positive"))
	}

	if c.Fetch.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("fetch.max_body_bytes must be positive"))
	}

	if c.Fetch.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("fetch.rate_limit cannot be negative"))
	}

	if c.Fetch.Workers < 1 {
		errs = append(errs, fmt.Errorf("fetch.workers must be at least 1"))
	}

	if c.Report.Threshold < 0 || c.Report.Threshold > 1 {
		errs = append(errs, fmt.Errorf("report.threshold must be within [0, 1], got %v", c.Report.Threshold))
	}

	if c.Report.ExcerptWords <= 0 {
		errs = append(errs, fmt.Errorf("report.excerpt_words must be positive"))
	}

	return errors.Join(errs...)
}

// RetrieverOptions maps the search, sources, fetch and cleaner sections onto
// retriever options.
func (c Config) RetrieverOptions() retriever.Options {
	return retriever.Options{
		Provider:       c.Search.Provider,
		Endpoints:      c.Search.Endpoints,
		MaxResults:     c.Search.MaxResults,
		Fallback:       append([]string(nil), c.Sources.Fallback...),
		FallbackPolicy: retriever.FallbackPolicy(c.Sources.FallbackPolicy),
		Workers:        c.Fetch.Workers,
		RateLimit:      c.Fetch.RateLimit,
		Timeout:        c.Fetch.Timeout,
		MaxBodyBytes:   c.Fetch.MaxBodyBytes,
		Readability:    c.Cleaner.Readability,
	}
}

// QueryNoise returns the rule set for query building.
func (c Config) QueryNoise() *rules.Set {
	return rules.QueryNoise(c.Query.Keywords...)
}

// PageChrome returns the rule set for content cleaning.
func (c Config) PageChrome() *rules.Set {
	return rules.PageChrome(c.Cleaner.Keywords...)
}
