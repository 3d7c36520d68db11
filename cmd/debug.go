package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/btraven00/plagcheck/internal/config"
	"github.com/btraven00/plagcheck/internal/discovery"
	"github.com/btraven00/plagcheck/internal/extractor"
	"github.com/btraven00/plagcheck/internal/pipeline"
	"github.com/btraven00/plagcheck/pkg/rules"
)

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Debug information about rule sets, providers and configuration",
	Long:  `Display the effective configuration, the line-filtering rule sets and the registered search providers, or test a line or URL against them.`,
	RunE:  runDebug,
}

var (
	debugListRules bool
	debugTestLine  string
	debugTestURL   string
)

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.Flags().BoolVarP(&debugListRules, "list-rules", "l", false, "List all line-filtering rules")
	debugCmd.Flags().StringVarP(&debugTestLine, "test-line", "t", "", "Show which rules drop a line")
	debugCmd.Flags().StringVarP(&debugTestURL, "test-url", "u", "", "Check whether a line counts as a declared reference")
}

func runDebug(cmd *cobra.Command, _ []string) error {
	s, err := setup(cmd, nil)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	sets := []*rules.Set{s.cfg.QueryNoise(), s.cfg.PageChrome()}

	switch {
	case debugListRules:
		listRules(w, sets)
	case debugTestLine != "":
		testLine(w, sets, debugTestLine)
	case debugTestURL != "":
		testURL(w, debugTestURL)
	default:
		p, err := pipeline.New(s.cfg, s.logger, s.reporter)
		if err != nil {
			return err
		}

		showGeneralDebug(w, s.cfg, p.Retriever().Providers().ListWithAliases())
	}

	return nil
}

func listRules(w io.Writer, sets []*rules.Set) {
	fmt.Fprintln(w, "=== Line-Filtering Rule Sets ===")

	for _, set := range sets {
		fmt.Fprintf(w, "\n%s (%d rules, first match wins):\n", set.Name(), len(set.Rules()))

		for i, rule := range set.Rules() {
			fmt.Fprintf(w, "  %2d. %-24s %s\n", i+1, rule.Name, rule.Reason)
		}
	}
}

func testLine(w io.Writer, sets []*rules.Set, line string) {
	fmt.Fprintf(w, "=== Testing Line: %q ===\n\n", line)

	for _, set := range sets {
		if rule, ok := set.Match(line); ok {
			fmt.Fprintf(w, "%s: dropped by %s (%s)\n", set.Name(), rule.Name, rule.Reason)
		} else {
			fmt.Fprintf(w, "%s: kept\n", set.Name())
		}
	}
}

func testURL(w io.Writer, candidate string) {
	trimmed := strings.TrimSpace(candidate)

	if discovery.IsValidURL(trimmed) {
		fmt.Fprintf(w, "%q is a declared reference\n", trimmed)
		return
	}

	fmt.Fprintf(w, "%q is not a declared reference: the whole line must be an http(s) URL with a dotted host\n", trimmed)
}

func showGeneralDebug(w io.Writer, cfg config.Config, providers map[string][]string) {
	fmt.Fprintln(w, "=== Plagcheck Debug Information ===")
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Search provider: %s (max %d results)\n", cfg.Search.Provider, cfg.Search.MaxResults)
	fmt.Fprintf(w, "Fallback policy: %s\n", cfg.Sources.FallbackPolicy)
	fmt.Fprintf(w, "Fallback sources: %d\n", len(cfg.Sources.Fallback))

	for _, u := range cfg.Sources.Fallback {
		fmt.Fprintf(w, "  - %s\n", u)
	}

	fmt.Fprintf(w, "Fetch: timeout %s, %d worker(s), max body %d bytes\n", cfg.Fetch.Timeout, cfg.Fetch.Workers, cfg.Fetch.MaxBodyBytes)
	fmt.Fprintf(w, "Report: threshold %.2f, excerpt %d words\n", cfg.Report.Threshold, cfg.Report.ExcerptWords)
	fmt.Fprintf(w, "OCR: %t (%s, %.0f dpi, compiled in: %t)\n", cfg.OCR.OCR, cfg.OCR.Language, cfg.OCR.DPI, extractor.OCREnabled)
	fmt.Fprintln(w)

	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(w, "Providers: %d registered\n", len(names))

	for _, name := range names {
		if aliases := providers[name]; len(aliases) > 0 {
			fmt.Fprintf(w, "  %s (aliases: %s)\n", name, strings.Join(aliases, ", "))
		} else {
			fmt.Fprintf(w, "  %s\n", name)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Use --list-rules to see the line-filtering rules")
	fmt.Fprintln(w, "Use --test-line <line> to see which rules drop a line")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Example commands:")
	fmt.Fprintln(w, "  plagcheck debug --list-rules")
	fmt.Fprintln(w, "  plagcheck debug --test-line 'Font Size: A A A'")
	fmt.Fprintln(w, "  plagcheck debug --test-url 'https://www.example.org/paper'")
}
