package similarity

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/kljensen/snowball"
)

// tokenPattern matches runs of two or more word characters.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Vector is a sparse, L2-normalized TF-IDF row indexed by vocabulary term.
type Vector map[int]float64

// Vectorizer builds a shared TF-IDF space over a corpus.
// tf is the raw term count, idf = ln((1+n)/(1+df)) + 1, rows are L2-normalized.
type Vectorizer struct {
	vocabulary map[string]int
	stopwords  map[string]struct{}
	language   string
	idf        []float64
	stem       bool
}

// NewVectorizer creates an unfitted vectorizer.
func NewVectorizer(options Options) *Vectorizer {
	v := &Vectorizer{
		vocabulary: make(map[string]int),
		stem:       options.Stem,
		language:   options.Language,
	}

	if v.language == "" {
		v.language = "english"
	}

	if options.Stopwords {
		v.stopwords = defaultStopwords()
	}

	return v
}

// Tokenize lowercases text and returns its terms after the configured
// stopword removal and stemming.
func (v *Vectorizer) Tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	if len(raw) == 0 {
		return nil
	}

	out := raw[:0]

	for _, tok := range raw {
		if _, isStop := v.stopwords[tok]; isStop {
			continue
		}

		if v.stem {
			stemmed, err := snowball.Stem(tok, v.language, true)
			if err == nil && stemmed != "" {
				tok = stemmed
			}
		}

		out = append(out, tok)
	}

	return out
}

// Fit builds the vocabulary and idf weights from corpus.
func (v *Vectorizer) Fit(corpus []string) {
	df := make(map[string]int)

	for _, text := range corpus {
		seen := make(map[string]struct{})

		for _, tok := range v.Tokenize(text) {
			if _, ok := seen[tok]; ok {
				continue
			}

			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	// Stable ordering for the vocabulary
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}

	sort.Strings(terms)

	v.vocabulary = make(map[string]int, len(terms))
	v.idf = make([]float64, len(terms))
	n := float64(len(corpus))

	for i, term := range terms {
		v.vocabulary[term] = i
		v.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}
}

// VocabularySize returns the number of distinct terms seen by Fit.
func (v *Vectorizer) VocabularySize() int { return len(v.vocabulary) }

// Transform maps text into the fitted space. Unknown terms are ignored; a
// text with no known terms yields the zero vector.
func (v *Vectorizer) Transform(text string) Vector {
	vec := make(Vector)

	for _, tok := range v.Tokenize(text) {
		if idx, ok := v.vocabulary[tok]; ok {
			vec[idx]++
		}
	}

	norm := 0.0

	for _, idx := range vec.indices() {
		w := vec[idx] * v.idf[idx]
		vec[idx] = w
		norm += w * w
	}

	if norm == 0 {
		return vec
	}

	norm = math.Sqrt(norm)
	for idx := range vec {
		vec[idx] /= norm
	}

	return vec
}

// indices returns the non-zero positions in ascending order, so sums are
// accumulated in the same order on every run.
func (v Vector) indices() []int {
	out := make([]int, 0, len(v))
	for idx := range v {
		out = append(out, idx)
	}

	sort.Ints(out)

	return out
}

// Cosine returns the cosine similarity of two vectors clamped to [0, 1],
// and 0 when either is the zero vector.
func Cosine(a, b Vector) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}

	var dot, normA, normB float64

	for _, idx := range a.indices() {
		x := a[idx]
		dot += x * b[idx]
		normA += x * x
	}

	for _, idx := range b.indices() {
		normB += b[idx] * b[idx]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))

	return math.Max(0, math.Min(1, sim))
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	}

	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}

	return m
}
