// Package rules provides named, ordered line-filtering rule sets used to strip
// noise from document text and scraped web pages.
package rules

import (
	"fmt"
	"strings"
)

// Rule is a named line predicate. A line matching a rule is dropped.
type Rule struct {
	Match  func(line string) bool
	Name   string
	Reason string
}

// Drop records a line removed by a rule.
type Drop struct {
	Line string `json:"line"`
	Rule string `json:"rule"`
}

// Set is an ordered collection of rules. The first matching rule wins.
type Set struct {
	name  string
	rules []Rule
}

// NewSet creates a rule set with the given rules in evaluation order.
func NewSet(name string, rules ...Rule) *Set {
	s := &Set{name: name}
	s.rules = append(s.rules, rules...)

	return s
}

// Name returns the set name
func (s *Set) Name() string {
	return s.name
}

// Rules returns a copy of the rules in evaluation order
func (s *Set) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)

	return out
}

// With returns a new set with extra rules appended after the existing ones.
func (s *Set) With(rules ...Rule) *Set {
	out := NewSet(s.name, s.rules...)
	out.rules = append(out.rules, rules...)

	return out
}

// Match returns the first rule matching line.
func (s *Set) Match(line string) (Rule, bool) {
	for _, rule := range s.rules {
		if rule.Match != nil && rule.Match(line) {
			return rule, true
		}
	}

	return Rule{}, false
}

// Filter splits lines into the ones no rule matches and the ones dropped.
func (s *Set) Filter(lines []string) ([]string, []Drop) {
	kept := make([]string, 0, len(lines))

	var dropped []Drop

	for _, line := range lines {
		if rule, ok := s.Match(line); ok {
			dropped = append(dropped, Drop{Line: line, Rule: rule.Name})
			continue
		}

		kept = append(kept, line)
	}

	return kept, dropped
}

// Contains builds a rule that matches lines containing keyword, ignoring case.
func Contains(keyword, reason string) Rule {
	needle := strings.ToLower(keyword)

	return Rule{
		Name:   fmt.Sprintf("contains %q", needle),
		Reason: reason,
		Match: func(line string) bool {
			return strings.Contains(strings.ToLower(line), needle)
		},
	}
}

// Blank matches lines that are empty or whitespace only.
func Blank() Rule {
	return Rule{
		Name:   "blank",
		Reason: "empty line",
		Match: func(line string) bool {
			return strings.TrimSpace(line) == ""
		},
	}
}

// Keywords builds one Contains rule per keyword, all sharing reason.
func Keywords(reason string, keywords ...string) []Rule {
	out := make([]Rule, 0, len(keywords))
	for _, kw := range keywords {
		if strings.TrimSpace(kw) == "" {
			continue
		}

		out = append(out, Contains(kw, reason))
	}

	return out
}
