// Package similarity scores a document against candidate sources in a shared
// TF-IDF vector space.
package similarity

import (
	"strings"

	"go.uber.org/zap"
)

// Options tunes tokenization. The zero value reproduces the classic
// vectorizer defaults.
type Options struct {
	// Language is the Snowball stemmer language.
	Language  string `json:"language" mapstructure:"language"`
	Stopwords bool   `json:"stopwords" mapstructure:"stopwords"`
	Stem      bool   `json:"stem" mapstructure:"stem"`
}

// Engine computes document-to-source similarity.
type Engine struct {
	logger  *zap.Logger
	options Options
}

// New creates an Engine.
func New(options Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{options: options, logger: logger}
}

// Score returns one similarity in [0, 1] per source, in input order. The
// vocabulary is fitted over the document and the non-empty sources; empty
// sources score 0. An empty source list returns an empty result without
// vectorizing anything.
func (e *Engine) Score(document string, sources []string) []float64 {
	scores := make([]float64, len(sources))
	if len(sources) == 0 {
		return scores
	}

	corpus := make([]string, 0, len(sources)+1)
	corpus = append(corpus, document)

	for _, s := range sources {
		if strings.TrimSpace(s) != "" {
			corpus = append(corpus, s)
		}
	}

	v := NewVectorizer(e.options)
	v.Fit(corpus)

	docVec := v.Transform(document)

	for i, s := range sources {
		if strings.TrimSpace(s) == "" {
			continue
		}

		scores[i] = Cosine(docVec, v.Transform(s))
	}

	e.logger.Debug("similarity computed",
		zap.Int("sources", len(sources)),
		zap.Int("corpus", len(corpus)),
		zap.Int("vocabulary", v.VocabularySize()),
		zap.Float64s("scores", scores))

	return scores
}

// Mean returns the arithmetic mean of scores, 0 when empty.
func Mean(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}

	sum := 0.0
	for _, s := range scores {
		sum += s
	}

	return sum / float64(len(scores))
}

// Max returns the largest score, 0 when empty.
func Max(scores []float64) float64 {
	best := 0.0
	for _, s := range scores {
		if s > best {
			best = s
		}
	}

	return best
}
