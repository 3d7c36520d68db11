// Package discovery finds candidate sources inside a document: declared
// reference URLs and a search query built from the opening lines.
package discovery

import (
	"strings"

	"github.com/btraven00/plagcheck/pkg/rules"
)

// DefaultQueryLines is how many surviving lines make up a search query.
const DefaultQueryLines = 3

// QueryBuilder derives a short search query from document text.
type QueryBuilder struct {
	noise    *rules.Set
	maxLines int
}

// NewQueryBuilder creates a query builder. A nil rule set selects
// rules.QueryNoise(); maxLines <= 0 selects DefaultQueryLines.
func NewQueryBuilder(noise *rules.Set, maxLines int) *QueryBuilder {
	if noise == nil {
		noise = rules.QueryNoise()
	}

	if maxLines <= 0 {
		maxLines = DefaultQueryLines
	}

	return &QueryBuilder{noise: noise, maxLines: maxLines}
}

// Build drops noisy lines and joins the first surviving lines with spaces.
func (b *QueryBuilder) Build(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}

	kept, _ := b.noise.Filter(lines)
	if len(kept) > b.maxLines {
		kept = kept[:b.maxLines]
	}

	return strings.Join(kept, " ")
}

// BuildQuery builds a query with the default rules and line count.
func BuildQuery(text string) string {
	return NewQueryBuilder(nil, 0).Build(text)
}
