package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/btraven00/plagcheck/internal/pipeline"
	"github.com/btraven00/plagcheck/internal/report"
	"github.com/btraven00/plagcheck/internal/retriever"
	"github.com/btraven00/plagcheck/pkg/rules"
)

var (
	fetchRaw   bool
	fetchDrops bool
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "Fetch one source and print its cleaned text",
	Long: `Fetch retrieves a single candidate source the way a scan does (browser
headers, redirects, body size cap, retry and circuit breaker) and prints
the text that would be scored against the document.

Examples:
  plagcheck fetch https://www.example.org/article
  plagcheck fetch --drops https://www.example.org/article
  plagcheck fetch --raw --readability https://www.example.org/article`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

var fetchFlagKeys = map[string]string{
	"timeout":     "fetch.timeout",
	"readability": "cleaner.readability",
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().BoolVar(&fetchRaw, "raw", false, "print the visible text without removing page chrome")
	fetchCmd.Flags().BoolVar(&fetchDrops, "drops", false, "list the lines removed by the cleaner on stderr")
	fetchCmd.Flags().DurationP("timeout", "t", retriever.DefaultTimeout, "timeout for the HTTP request")
	fetchCmd.Flags().Bool("readability", false, "keep only the main content block of HTML pages")
}

type fetchOutput struct {
	Status retriever.FetchStatus `json:"status" yaml:"status"`
	Text   string                `json:"text" yaml:"text"`
	Drops  []rules.Drop          `json:"drops,omitempty" yaml:"drops,omitempty"`
}

func runFetch(cmd *cobra.Command, args []string) error {
	target := strings.TrimSpace(args[0])

	s, err := setup(cmd, fetchFlagKeys)
	if err != nil {
		return err
	}
	defer func() { _ = s.logger.Sync() }()

	p, err := pipeline.New(s.cfg, s.logger, s.reporter)
	if err != nil {
		return err
	}

	raw, st := p.Retriever().FetchURL(cmd.Context(), target)
	if !st.OK {
		return fmt.Errorf("failed to fetch %s: %s", target, st.Error)
	}

	result := fetchOutput{Status: st, Text: raw}
	if !fetchRaw {
		result.Text, result.Drops = p.Cleaner().CleanWithDrops(raw)
	}

	s.reporter.Statusf("Fetched %s (%s, %d chars, %s)", target, st.ContentType, st.Chars, st.Duration.Round(time.Millisecond))

	if fetchDrops {
		writeDrops(cmd.ErrOrStderr(), result.Drops)
	}

	return writeFetch(cmd.OutOrStdout(), s.cfg.Output, result)
}

func writeFetch(w io.Writer, format string, result fetchOutput) error {
	switch strings.ToLower(format) {
	case report.FormatJSON:
		return report.WriteJSON(w, result)
	case report.FormatYAML:
		return report.WriteYAML(w, result)
	default:
		_, err := fmt.Fprintln(w, result.Text)
		return err
	}
}

func writeDrops(w io.Writer, drops []rules.Drop) {
	fmt.Fprintf(w, "Removed %d line(s):\n", len(drops))

	for _, d := range drops {
		if strings.TrimSpace(d.Line) == "" {
			continue
		}

		fmt.Fprintf(w, "  [%s] %s\n", d.Rule, d.Line)
	}
}
