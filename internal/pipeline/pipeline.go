// Package pipeline runs a plagiarism check end to end: extract, discover
// references, build the query, retrieve, clean, score and report. Each stage
// reads the previous stages' outputs and appends its own to a Result; nothing
// is shared between runs.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/btraven00/plagcheck/internal/cleaner"
	"github.com/btraven00/plagcheck/internal/config"
	"github.com/btraven00/plagcheck/internal/discovery"
	"github.com/btraven00/plagcheck/internal/extractor"
	"github.com/btraven00/plagcheck/internal/metrics"
	"github.com/btraven00/plagcheck/internal/report"
	"github.com/btraven00/plagcheck/internal/resilience"
	"github.com/btraven00/plagcheck/internal/retriever"
	"github.com/btraven00/plagcheck/internal/similarity"
	"github.com/btraven00/plagcheck/internal/status"
)

// Stage names a step of a run, in execution order.
type Stage string

const (
	StageExtract            Stage = "extract"
	StageDiscoverReferences Stage = "discover_references"
	StageBuildQuery         Stage = "build_query"
	StageRetrieve           Stage = "retrieve"
	StageClean              Stage = "clean"
	StageScore              Stage = "score"
	StageReport             Stage = "report"
)

// Source is a retrieved candidate after cleaning, with its score.
type Source struct {
	Reference discovery.Reference `json:"reference" yaml:"reference"`
	Text      string              `json:"-" yaml:"-"`
	Index     int                 `json:"index" yaml:"index"`
	Chars     int                 `json:"chars" yaml:"chars"`
	Score     float64             `json:"score" yaml:"score"`
}

// Result holds every stage output of one run. It is not modified after the
// run returns.
type Result struct {
	RunID      string                  `json:"run_id" yaml:"run_id"`
	Document   string                  `json:"document" yaml:"document"`
	Extraction *extractor.Result       `json:"extraction" yaml:"extraction"`
	Text       string                  `json:"-" yaml:"-"`
	References []discovery.Reference   `json:"references" yaml:"references"`
	Query      string                  `json:"query" yaml:"query"`
	Search     retriever.SearchStatus  `json:"search" yaml:"search"`
	Candidates []discovery.Reference   `json:"candidates" yaml:"candidates"`
	Fetches    []retriever.FetchStatus `json:"fetches" yaml:"fetches"`
	Sources    []Source                `json:"sources" yaml:"sources"`
	Scores     []float64               `json:"scores" yaml:"scores"`
	Report     *report.Report          `json:"report" yaml:"report"`
	Stages     []Stage                 `json:"stages" yaml:"stages"`
	Duration   time.Duration           `json:"duration" yaml:"duration"`

	UsedFallback bool `json:"used_fallback" yaml:"used_fallback"`
}

// ReferenceURLs returns the declared reference URLs in document order.
func (r *Result) ReferenceURLs() []string { return discovery.URLs(r.References) }

// CandidateURLs returns the candidate URLs in candidate order.
func (r *Result) CandidateURLs() []string { return discovery.URLs(r.Candidates) }

// Pipeline wires the stage components together.
type Pipeline struct {
	extractor     *extractor.TextExtractor
	query         *discovery.QueryBuilder
	retriever     *retriever.Retriever
	cleaner       *cleaner.Cleaner
	engine        *similarity.Engine
	metrics       *metrics.Run
	logger        *zap.Logger
	status        status.Reporter
	reportOptions report.Options
}

// New builds a pipeline from cfg. It fails only on an unusable
// configuration.
func New(cfg config.Config, logger *zap.Logger, reporter status.Reporter) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if reporter == nil {
		reporter = status.Discard
	}

	executor := resilience.NewExecutor(cfg.Resilience, logger.Named("resilience"))

	r, err := retriever.New(cfg.RetrieverOptions(), executor, logger.Named("retriever"), reporter)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		extractor:     extractor.New(cfg.OCR, logger.Named("extractor"), reporter),
		query:         discovery.NewQueryBuilder(cfg.QueryNoise(), cfg.Query.Lines),
		retriever:     r,
		cleaner:       cleaner.New(cfg.PageChrome()),
		engine:        similarity.New(cfg.Similarity, logger.Named("similarity")),
		logger:        logger,
		status:        reporter,
		reportOptions: cfg.Report,
	}, nil
}

// WithMetrics records run metrics into m.
func (p *Pipeline) WithMetrics(m *metrics.Run) *Pipeline {
	p.metrics = m
	if m != nil {
		p.retriever.WithObserver(m)
	}

	return p
}

// WithRecognizer replaces the OCR engine.
func (p *Pipeline) WithRecognizer(r extractor.Recognizer) *Pipeline {
	p.extractor.WithRecognizer(r)
	return p
}

// WithProvider replaces the search provider.
func (p *Pipeline) WithProvider(provider retriever.Provider) *Pipeline {
	p.retriever.WithProvider(provider)
	return p
}

// Retriever exposes the configured retriever.
func (p *Pipeline) Retriever() *retriever.Retriever { return p.retriever }

// Extractor exposes the configured text extractor.
func (p *Pipeline) Extractor() *extractor.TextExtractor { return p.extractor }

// Cleaner exposes the configured content cleaner.
func (p *Pipeline) Cleaner() *cleaner.Cleaner { return p.cleaner }

// QueryBuilder exposes the configured query builder.
func (p *Pipeline) QueryBuilder() *discovery.QueryBuilder { return p.query }

// Run checks the document stored at filename. Only an unreadable document
// or cancellation is an error.
func (p *Pipeline) Run(ctx context.Context, runID, filename string) (*Result, error) {
	start := time.Now()

	p.status.Statusf("Extracting text...")

	extraction, err := p.extractor.ExtractFromFile(ctx, filename)
	if err != nil {
		return nil, err
	}

	return p.analyze(ctx, start, runID, filename, extraction)
}

// RunDocument checks an already opened document.
func (p *Pipeline) RunDocument(ctx context.Context, runID, name string, doc extractor.Document) (*Result, error) {
	start := time.Now()

	p.status.Statusf("Extracting text...")

	extraction, err := p.extractor.Extract(ctx, doc)
	if err != nil {
		return nil, err
	}

	extraction.Filename = name

	return p.analyze(ctx, start, runID, name, extraction)
}

func (p *Pipeline) analyze(ctx context.Context, start time.Time, runID, name string, extraction *extractor.Result) (*Result, error) {
	res := &Result{
		RunID:      runID,
		Document:   name,
		Extraction: extraction,
		Text:       extraction.Text,
		Stages:     []Stage{StageExtract},
	}

	for _, page := range extraction.Pages {
		p.observePage(string(page.Method))
	}

	p.logger.Info("stage completed", zap.String("stage", string(StageExtract)), zap.Int("chars", len(res.Text)))

	// References
	p.status.Statusf("Analyzing References...")

	res.References = discovery.ExtractReferences(res.Text)
	if len(res.References) == 0 {
		p.status.Statusf("No valid references found in the document.")
	}

	for _, ref := range res.References {
		p.status.Statusf("Reference Found: %s", ref.URL)
	}

	res.Stages = append(res.Stages, StageDiscoverReferences)
	p.logger.Info("stage completed", zap.String("stage", string(StageDiscoverReferences)), zap.Int("references", len(res.References)))

	// Query
	res.Query = p.query.Build(res.Text)
	res.Stages = append(res.Stages, StageBuildQuery)

	p.status.Statusf("Searching for potential sources with the following query:")
	p.status.Statusf("%s", res.Query)
	p.logger.Info("stage completed", zap.String("stage", string(StageBuildQuery)), zap.String("query", res.Query))

	// Retrieve
	var searched []discovery.Reference

	searched, res.Search = p.retriever.Search(ctx, res.Query)
	res.Candidates, res.UsedFallback = p.retriever.Candidates(res.References, searched)

	if res.UsedFallback {
		p.status.Statusf("Using additional external sources...")
	}

	p.status.Statusf("Found Sources:")

	for _, c := range res.Candidates {
		p.status.Statusf("Source Link: %s", c.URL)
	}

	if p.metrics != nil {
		p.metrics.ObserveCandidates(len(res.Candidates))
	}

	texts, fetches := p.retriever.Fetch(ctx, res.Candidates)
	res.Fetches = fetches

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res.Stages = append(res.Stages, StageRetrieve)
	p.logger.Info("stage completed",
		zap.String("stage", string(StageRetrieve)),
		zap.Int("candidates", len(res.Candidates)),
		zap.Int("retrieved", len(texts)),
		zap.Bool("used_fallback", res.UsedFallback))

	p.score(res, texts)
	res.Duration = time.Since(start)

	if p.metrics != nil {
		p.metrics.ObserveReport(res.Report.Aggregate, len(res.Report.Flagged))
		p.metrics.Finish(res.Duration)
	}

	p.logger.Info("run completed",
		zap.Float64("aggregate_percent", res.Report.Aggregate),
		zap.Int("flagged", len(res.Report.Flagged)),
		zap.Duration("duration", res.Duration))

	return res, nil
}

// Compare scores a document against sources supplied by the caller, with no
// search or network access. Sources are cleaned like fetched pages.
func (p *Pipeline) Compare(ctx context.Context, runID string, extraction *extractor.Result, sources []retriever.SourceText) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()

	res := &Result{
		RunID:      runID,
		Document:   extraction.Filename,
		Extraction: extraction,
		Text:       extraction.Text,
		Stages:     []Stage{StageExtract},
		Candidates: make([]discovery.Reference, len(sources)),
		Fetches:    make([]retriever.FetchStatus, len(sources)),
	}

	texts := make([]retriever.SourceText, len(sources))

	for i, src := range sources {
		src.Index = i
		texts[i] = src
		res.Candidates[i] = src.Reference
		res.Fetches[i] = retriever.FetchStatus{Reference: src.Reference, Index: i, OK: true, Chars: len(src.Text)}
	}

	p.score(res, texts)
	res.Duration = time.Since(start)

	return res, nil
}

// score runs the clean, score and report stages.
func (p *Pipeline) score(res *Result, texts []retriever.SourceText) {
	res.Sources = make([]Source, len(texts))
	cleaned := make([]string, len(texts))

	for i, t := range texts {
		cleaned[i] = p.cleaner.Clean(t.Text)
		res.Sources[i] = Source{
			Index:     t.Index,
			Reference: t.Reference,
			Text:      cleaned[i],
			Chars:     len(cleaned[i]),
		}
	}

	res.Stages = append(res.Stages, StageClean)

	p.status.Statusf("Detecting plagiarism...")

	res.Scores = p.engine.Score(res.Text, cleaned)
	res.Stages = append(res.Stages, StageScore)

	scored := make([]report.Scored, len(res.Sources))
	for i := range res.Sources {
		res.Sources[i].Score = res.Scores[i]
		scored[i] = report.Scored{
			Index: res.Sources[i].Index,
			URL:   res.Sources[i].Reference.URL,
			Text:  res.Sources[i].Text,
			Score: res.Scores[i],
		}
	}

	candidates := make([]report.Candidate, len(res.Candidates))
	for i, c := range res.Candidates {
		candidates[i] = report.Candidate{URL: c.URL, Origin: string(c.Origin)}
		if i < len(res.Fetches) {
			candidates[i].OK = res.Fetches[i].OK
			candidates[i].Error = res.Fetches[i].Error
		}
	}

	res.Report = report.Generate(scored, candidates, p.reportOptions)
	res.Stages = append(res.Stages, StageReport)

	p.logger.Info("stage completed",
		zap.String("stage", string(StageScore)),
		zap.Float64s("scores", res.Scores),
		zap.Float64("aggregate_percent", res.Report.Aggregate))
}

func (p *Pipeline) observePage(method string) {
	if p.metrics != nil {
		p.metrics.ObservePage(method)
	}
}
