// Package report turns similarity scores into the user-facing verdict: an
// aggregate percentage, flagged excerpts and an original/plagiarized split.
package report

import (
	"strings"

	"github.com/btraven00/plagcheck/internal/similarity"
)

const (
	// DefaultThreshold is the score above which a source is flagged.
	DefaultThreshold = 0.1
	// DefaultExcerptWords is the excerpt length in whitespace tokens.
	DefaultExcerptWords = 50
)

// AggregateNote explains how the aggregate is derived.
const AggregateNote = "The aggregate is the mean similarity over all retrieved sources, " +
	"so one heavily overlapping source is diluted by unrelated ones. " +
	"Check the per-source scores and the maximum."

// Options controls flagging.
type Options struct {
	Threshold    float64 `json:"threshold" mapstructure:"threshold"`
	ExcerptWords int     `json:"excerpt_words" mapstructure:"excerpt_words"`
}

// DefaultOptions returns the default report settings.
func DefaultOptions() Options {
	return Options{Threshold: DefaultThreshold, ExcerptWords: DefaultExcerptWords}
}

// Candidate is one entry of the candidate list, fetched or not.
type Candidate struct {
	URL    string `json:"url" yaml:"url"`
	Origin string `json:"origin" yaml:"origin"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
	OK     bool   `json:"ok" yaml:"ok"`
}

// Scored is a retrieved source with its cleaned text and score.
type Scored struct {
	URL  string
	Text string
	// Index is the 0-based candidate position.
	Index int
	Score float64
}

// Source is a row of the per-source table.
type Source struct {
	URL     string  `json:"url" yaml:"url"`
	Origin  string  `json:"origin" yaml:"origin"`
	Error   string  `json:"error,omitempty" yaml:"error,omitempty"`
	Number  int     `json:"number" yaml:"number"`
	Score   float64 `json:"score" yaml:"score"`
	Fetched bool    `json:"fetched" yaml:"fetched"`
	Flagged bool    `json:"flagged" yaml:"flagged"`
}

// Excerpt is a flagged passage from a source.
type Excerpt struct {
	URL  string `json:"url" yaml:"url"`
	Text string `json:"text" yaml:"text"`
	// SourceNumber is the 1-based candidate position.
	SourceNumber int     `json:"source_number" yaml:"source_number"`
	Score        float64 `json:"score" yaml:"score"`
}

// Proportion is the two-slice summary payload.
type Proportion struct {
	Original    float64 `json:"original" yaml:"original"`
	Plagiarized float64 `json:"plagiarized" yaml:"plagiarized"`
}

// Slice is one labeled part of a Proportion.
type Slice struct {
	Label string  `json:"label" yaml:"label"`
	Value float64 `json:"value" yaml:"value"`
}

// Slices returns the proportion as labeled slices in display order.
func (p Proportion) Slices() []Slice {
	return []Slice{
		{Label: "Original", Value: p.Original},
		{Label: "Plagiarized", Value: p.Plagiarized},
	}
}

// Report is the result of a run as presented to the user.
type Report struct {
	Note       string     `json:"note,omitempty" yaml:"note,omitempty"`
	Sources    []Source   `json:"sources" yaml:"sources"`
	Flagged    []Excerpt  `json:"flagged" yaml:"flagged"`
	Proportion Proportion `json:"proportion" yaml:"proportion"`
	// Aggregate is the mean score as a percentage in [0, 100].
	Aggregate float64 `json:"aggregate" yaml:"aggregate"`
	MaxScore  float64 `json:"max_score" yaml:"max_score"`
	Threshold float64 `json:"threshold" yaml:"threshold"`
	Scored    int     `json:"scored" yaml:"scored"`
}

// Generate builds a report. scored holds the retrieved sources in candidate
// order; candidates is the full candidate list for the per-source table.
func Generate(scored []Scored, candidates []Candidate, options Options) *Report {
	if options.ExcerptWords <= 0 {
		options.ExcerptWords = DefaultExcerptWords
	}

	scores := make([]float64, len(scored))
	for i, s := range scored {
		scores[i] = s.Score
	}

	aggregate := similarity.Mean(scores) * 100

	r := &Report{
		Aggregate: aggregate,
		MaxScore:  similarity.Max(scores),
		Threshold: options.Threshold,
		Scored:    len(scored),
		Flagged:   []Excerpt{},
		Proportion: Proportion{
			Original:    100 - aggregate,
			Plagiarized: aggregate,
		},
	}

	byIndex := make(map[int]Scored, len(scored))

	for _, s := range scored {
		byIndex[s.Index] = s

		if s.Score > options.Threshold {
			r.Flagged = append(r.Flagged, Excerpt{
				SourceNumber: s.Index + 1,
				URL:          s.URL,
				Score:        s.Score,
				Text:         FirstWords(s.Text, options.ExcerptWords),
			})
		}
	}

	r.Sources = make([]Source, len(candidates))
	for i, c := range candidates {
		src := Source{Number: i + 1, URL: c.URL, Origin: c.Origin, Error: c.Error}
		if s, ok := byIndex[i]; ok {
			src.Fetched = true
			src.Score = s.Score
			src.Flagged = s.Score > options.Threshold
		}

		r.Sources[i] = src
	}

	if len(scored) > 1 {
		r.Note = AggregateNote
	}

	return r
}

// FirstWords returns the first n whitespace-separated tokens joined by
// single spaces.
func FirstWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) > n {
		words = words[:n]
	}

	return strings.Join(words, " ")
}
