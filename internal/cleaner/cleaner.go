// Package cleaner reduces scraped page text to dense prose by dropping blank
// lines and navigation chrome.
package cleaner

import (
	"strings"

	"github.com/btraven00/plagcheck/pkg/rules"
)

// Cleaner applies a line rule set to raw page text.
type Cleaner struct {
	rules *rules.Set
}

// New creates a Cleaner. A nil set uses rules.PageChrome().
func New(set *rules.Set) *Cleaner {
	if set == nil {
		set = rules.PageChrome()
	}

	return &Cleaner{rules: set}
}

// Rules returns the active rule set.
func (c *Cleaner) Rules() *rules.Set { return c.rules }

// Clean trims every line, drops lines matched by the rule set and joins the
// survivors with single spaces.
func (c *Cleaner) Clean(text string) string {
	cleaned, _ := c.CleanWithDrops(text)
	return cleaned
}

// CleanWithDrops is Clean that also reports which lines were dropped and by
// which rule.
func (c *Cleaner) CleanWithDrops(text string) (string, []rules.Drop) {
	lines := splitLines(text)
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}

	kept, dropped := c.rules.Filter(lines)

	return strings.Join(kept, " "), dropped
}

// Clean applies the default page-chrome rules.
func Clean(text string) string {
	return New(nil).Clean(text)
}

// splitLines splits on every Unicode line boundary, not only "\n".
func splitLines(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case '\n', '\r', '\v', '\f', 0x1c, 0x1d, 0x1e, 0x85, 0x2028, 0x2029:
			return true
		}

		return false
	})
}
