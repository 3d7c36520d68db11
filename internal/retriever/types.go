package retriever

import (
	"errors"
	"fmt"
	"time"

	"github.com/btraven00/plagcheck/internal/discovery"
)

var (
	// ErrHTTPStatus wraps responses with status >= 400.
	ErrHTTPStatus = errors.New("unexpected HTTP status")
	// ErrUnsupportedContent is returned for responses that carry no text.
	ErrUnsupportedContent = errors.New("unsupported content type")
	// ErrBodyTooLarge is returned when a response exceeds the size cap.
	ErrBodyTooLarge = errors.New("response body too large")
)

// StatusError carries the HTTP status of a failed fetch.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d %s", e.URL, e.StatusCode, ErrHTTPStatus)
}

func (e *StatusError) Unwrap() error { return ErrHTTPStatus }

// SourceText is the raw visible text of a fetched candidate.
type SourceText struct {
	Reference discovery.Reference `json:"reference" yaml:"reference"`
	Text      string              `json:"-" yaml:"-"`
	// Index is the 0-based position in the candidate list.
	Index int `json:"index" yaml:"index"`
}

// FetchStatus records the outcome of fetching one candidate.
type FetchStatus struct {
	Reference   discovery.Reference `json:"reference" yaml:"reference"`
	Error       string              `json:"error,omitempty" yaml:"error,omitempty"`
	ContentType string              `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	Index       int                 `json:"index" yaml:"index"`
	StatusCode  int                 `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	Chars       int                 `json:"chars" yaml:"chars"`
	Duration    time.Duration       `json:"duration" yaml:"duration"`
	OK          bool                `json:"ok" yaml:"ok"`
}

// SearchStatus records the outcome of the search step.
type SearchStatus struct {
	Provider string `json:"provider" yaml:"provider"`
	Query    string `json:"query" yaml:"query"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
	Results  int    `json:"results" yaml:"results"`
	Skipped  bool   `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// FallbackPolicy decides when the fixed fallback sources are used.
type FallbackPolicy string

const (
	// FallbackNoDeclared substitutes the fallback list whenever the document
	// declares no references.
	FallbackNoDeclared FallbackPolicy = "no-declared"
	// FallbackNoCandidates substitutes it only when both declared references
	// and search results are empty.
	FallbackNoCandidates FallbackPolicy = "no-candidates"
)

// DefaultFallbackSources are used when a document declares no references.
var DefaultFallbackSources = []string{
	"https://example1.com/relevant-article",
	"https://example2.com/related-study",
}

// Observer receives per-call measurements. Implemented by the metrics
// package; nil-safe through noopObserver.
type Observer interface {
	ObserveFetch(ok bool, d time.Duration)
	ObserveSearch(provider string, results int, err error)
}

type noopObserver struct{}

func (noopObserver) ObserveFetch(bool, time.Duration) {}

func (noopObserver) ObserveSearch(string, int, error) {}
