// Package retriever discovers candidate sources through a search provider and
// fetches the raw visible text of every candidate. Retrieval is best-effort:
// failures are recorded per source and never abort a run.
package retriever

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/btraven00/plagcheck/internal/discovery"
	"github.com/btraven00/plagcheck/internal/extractor"
	"github.com/btraven00/plagcheck/internal/resilience"
	"github.com/btraven00/plagcheck/internal/status"
)

// DefaultMaxResults caps the number of search results used per run.
const DefaultMaxResults = 5

// Options configures a Retriever.
type Options struct {
	Provider       string
	Endpoints      Endpoints
	FallbackPolicy FallbackPolicy
	Fallback       []string
	MaxResults     int
	Workers        int
	// RateLimit is the maximum number of requests per second; 0 disables it.
	RateLimit    float64
	Timeout      time.Duration
	MaxBodyBytes int64
	// Readability extracts only the main content block of HTML pages.
	Readability bool
}

// DefaultOptions returns the default retrieval settings.
func DefaultOptions() Options {
	return Options{
		Provider:       "scholar",
		FallbackPolicy: FallbackNoDeclared,
		Fallback:       append([]string(nil), DefaultFallbackSources...),
		MaxResults:     DefaultMaxResults,
		Workers:        1,
		Timeout:        DefaultTimeout,
		MaxBodyBytes:   DefaultMaxBodyBytes,
	}
}

// Retriever runs the search and fetch paths.
type Retriever struct {
	client   *Client
	provider Provider
	registry *Registry
	executor *resilience.Executor
	limiter  *rate.Limiter
	observer Observer
	logger   *zap.Logger
	status   status.Reporter
	options  Options
}

// New creates a Retriever. It fails only for an unknown search provider.
func New(options Options, executor *resilience.Executor, logger *zap.Logger, reporter status.Reporter) (*Retriever, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if reporter == nil {
		reporter = status.Discard
	}

	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig(), logger)
	}

	if options.MaxResults <= 0 {
		options.MaxResults = DefaultMaxResults
	}

	if options.FallbackPolicy == "" {
		options.FallbackPolicy = FallbackNoDeclared
	}

	if options.Provider == "" {
		options.Provider = DefaultOptions().Provider
	}

	client := NewClient(options.Timeout, options.MaxBodyBytes)
	registry := NewDefaultRegistry(client, options.Endpoints)

	provider, err := registry.Get(options.Provider)
	if err != nil {
		return nil, err
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if options.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(options.RateLimit), 1)
	}

	return &Retriever{
		client:   client,
		provider: provider,
		registry: registry,
		executor: executor,
		limiter:  limiter,
		observer: noopObserver{},
		logger:   logger,
		status:   reporter,
		options:  options,
	}, nil
}

// WithObserver attaches a metrics observer.
func (r *Retriever) WithObserver(o Observer) *Retriever {
	if o != nil {
		r.observer = o
	}

	return r
}

// WithProvider replaces the configured search provider.
func (r *Retriever) WithProvider(p Provider) *Retriever {
	if p != nil {
		r.provider = p
	}

	return r
}

// Providers returns the provider registry.
func (r *Retriever) Providers() *Registry { return r.registry }

// ProviderName returns the active search provider.
func (r *Retriever) ProviderName() string { return r.provider.Name() }

// Search sends one query to the provider and returns at most MaxResults
// references. A failure yields zero results and is reported in the status.
func (r *Retriever) Search(ctx context.Context, query string) ([]discovery.Reference, SearchStatus) {
	st := SearchStatus{Provider: r.provider.Name(), Query: query}

	if strings.TrimSpace(query) == "" || r.provider.Name() == "none" {
		st.Skipped = true
		r.logger.Info("search skipped", zap.String("provider", st.Provider), zap.Bool("empty_query", strings.TrimSpace(query) == ""))

		return nil, st
	}

	var links []string

	err := r.executor.Execute(ctx, "search:"+r.provider.Name(), func(ctx context.Context) error {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}

		found, err := r.provider.Search(ctx, query, r.options.MaxResults)
		if err != nil {
			return err
		}

		links = found

		return nil
	}, classifyError)

	r.observer.ObserveSearch(st.Provider, len(links), err)

	if err != nil {
		st.Error = err.Error()
		r.logger.Warn("search failed", zap.String("provider", st.Provider), zap.Error(err))
		r.status.Statusf("Search failed: %v", err)

		return nil, st
	}

	if len(links) > r.options.MaxResults {
		links = links[:r.options.MaxResults]
	}

	refs := make([]discovery.Reference, len(links))
	for i, link := range links {
		refs[i] = discovery.Reference{URL: link, Origin: discovery.OriginSearched}
	}

	st.Results = len(refs)
	r.logger.Info("search completed", zap.String("provider", st.Provider), zap.Int("results", st.Results))

	return refs, st
}

// FallbackReferences returns the configured fallback sources.
func (r *Retriever) FallbackReferences() []discovery.Reference {
	refs := make([]discovery.Reference, 0, len(r.options.Fallback))
	for _, u := range r.options.Fallback {
		refs = append(refs, discovery.Reference{URL: u, Origin: discovery.OriginFallback})
	}

	return refs
}

// Candidates builds the candidate list: declared references (or the fallback
// list, per policy) followed by search results. No deduplication.
func (r *Retriever) Candidates(declared, searched []discovery.Reference) (candidates []discovery.Reference, usedFallback bool) {
	base := declared

	switch r.options.FallbackPolicy {
	case FallbackNoCandidates:
		usedFallback = len(declared) == 0 && len(searched) == 0
	default:
		usedFallback = len(declared) == 0
	}

	if usedFallback {
		base = r.FallbackReferences()
	}

	candidates = make([]discovery.Reference, 0, len(base)+len(searched))
	candidates = append(candidates, base...)
	candidates = append(candidates, searched...)

	return candidates, usedFallback
}

// Fetch retrieves every candidate. It returns the texts of successful
// fetches in candidate order and one status per candidate.
func (r *Retriever) Fetch(ctx context.Context, candidates []discovery.Reference) ([]SourceText, []FetchStatus) {
	tasks := make([]fetchTask, len(candidates))
	for i, ref := range candidates {
		tasks[i] = fetchTask{Index: i, Reference: ref}
	}

	pool := newWorkerPool(r.options.Workers, len(tasks), r.fetchOne)
	outcomes := pool.run(ctx, tasks)

	var texts []SourceText

	statuses := make([]FetchStatus, len(outcomes))

	for i, outcome := range outcomes {
		statuses[i] = outcome.Status

		if outcome.Status.OK {
			texts = append(texts, SourceText{
				Index:     outcome.Status.Index,
				Reference: outcome.Status.Reference,
				Text:      outcome.Text,
			})
		}
	}

	return texts, statuses
}

// FetchURL retrieves a single URL.
func (r *Retriever) FetchURL(ctx context.Context, rawURL string) (string, FetchStatus) {
	outcome := r.fetchOne(ctx, fetchTask{Reference: discovery.Reference{URL: rawURL, Origin: discovery.OriginDeclared}})
	return outcome.Text, outcome.Status
}

func (r *Retriever) fetchOne(ctx context.Context, task fetchTask) fetchOutcome {
	start := time.Now()
	st := FetchStatus{Reference: task.Reference, Index: task.Index}

	var text string

	err := r.executor.Execute(ctx, hostKey(task.Reference.URL), func(ctx context.Context) error {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}

		resp, err := r.client.Get(ctx, task.Reference.URL)
		if resp != nil {
			st.StatusCode = resp.StatusCode
			st.ContentType = resp.ContentType
		}

		if err != nil {
			return err
		}

		text, err = r.bodyText(resp)

		return err
	}, classifyError)

	st.Duration = time.Since(start)
	r.observer.ObserveFetch(err == nil, st.Duration)

	if err != nil {
		st.Error = err.Error()
		r.logger.Warn("fetch failed",
			zap.Int("index", task.Index),
			zap.String("url", task.Reference.URL),
			zap.Int("status_code", st.StatusCode),
			zap.Duration("duration", st.Duration),
			zap.Error(err))
		r.status.Statusf("Could not access %s: %v", task.Reference.URL, err)

		return fetchOutcome{Status: st}
	}

	st.OK = true
	st.Chars = len(text)
	r.logger.Debug("fetched source",
		zap.Int("index", task.Index),
		zap.String("url", task.Reference.URL),
		zap.String("content_type", st.ContentType),
		zap.Int("chars", st.Chars),
		zap.Duration("duration", st.Duration))

	return fetchOutcome{Status: st, Text: text}
}

// bodyText converts a response body into raw visible text.
func (r *Retriever) bodyText(resp *Response) (string, error) {
	switch contentCategory(resp.ContentType, resp.Body) {
	case contentHTML:
		if r.options.Readability {
			return ReadableText(resp.Body)
		}

		return VisibleText(bytes.NewReader(resp.Body))
	case contentPDF:
		text, err := extractor.ExtractPDFText(resp.Body)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnsupportedContent, err)
		}

		return text, nil
	case contentText:
		return string(resp.Body), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedContent, resp.ContentType)
	}
}

// hostKey groups breaker state by remote host.
func hostKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "invalid"
	}

	return strings.ToLower(u.Host)
}

// classifyError retries transport and server-side failures and counts them
// against the host's breaker. Client errors and unusable content do not
// indicate an unhealthy host.
func classifyError(err error) resilience.ErrorClassification {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode == 429 || statusErr.StatusCode >= 500 {
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		}

		return resilience.ErrorClassification{}
	}

	if errors.Is(err, ErrUnsupportedContent) || errors.Is(err, ErrBodyTooLarge) ||
		errors.Is(err, context.Canceled) {
		return resilience.ErrorClassification{}
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	return resilience.ErrorClassification{RecordFailure: true}
}
