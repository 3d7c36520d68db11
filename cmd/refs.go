package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/btraven00/plagcheck/internal/discovery"
	"github.com/btraven00/plagcheck/internal/pipeline"
	"github.com/btraven00/plagcheck/internal/report"
	"github.com/btraven00/plagcheck/internal/retriever"
)

var refsSearch bool

// refsCmd represents the refs command
var refsCmd = &cobra.Command{
	Use:   "refs <document>",
	Short: "List the declared references and the search query of a document",
	Long: `Refs extracts the text of a document and shows what a scan would look
for: every line that is a URL on its own, and the query built from the first
lines that are not bibliographic metadata.

With --search the query is also sent to the configured provider and the
resulting candidate list (declared, fallback and searched sources) is shown.
Nothing is fetched.

Examples:
  plagcheck refs paper.pdf
  plagcheck refs --search --provider crossref paper.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runRefs,
}

var refsFlagKeys = map[string]string{
	"provider":    "search.provider",
	"max-results": "search.max_results",
}

func init() {
	rootCmd.AddCommand(refsCmd)

	refsCmd.Flags().BoolVar(&refsSearch, "search", false, "run the search and show the candidate list")
	refsCmd.Flags().String("provider", "scholar", "search provider (scholar, crossref, none)")
	refsCmd.Flags().Int("max-results", retriever.DefaultMaxResults, "maximum number of search results to use")
}

type refsOutput struct {
	Document     string                  `json:"document" yaml:"document"`
	References   []discovery.Reference   `json:"references" yaml:"references"`
	Query        string                  `json:"query" yaml:"query"`
	Search       *retriever.SearchStatus `json:"search,omitempty" yaml:"search,omitempty"`
	Candidates   []discovery.Reference   `json:"candidates,omitempty" yaml:"candidates,omitempty"`
	UsedFallback bool                    `json:"used_fallback,omitempty" yaml:"used_fallback,omitempty"`
}

func runRefs(cmd *cobra.Command, args []string) error {
	filename := args[0]

	s, err := setup(cmd, refsFlagKeys)
	if err != nil {
		return err
	}
	defer func() { _ = s.logger.Sync() }()

	p, err := pipeline.New(s.cfg, s.logger, s.reporter)
	if err != nil {
		return err
	}

	s.reporter.Statusf("Extracting text...")

	extraction, err := p.Extractor().ExtractFromFile(cmd.Context(), filename)
	if err != nil {
		return fmt.Errorf("failed to extract text: %w", err)
	}

	result := refsOutput{
		Document:   filename,
		References: discovery.ExtractReferences(extraction.Text),
		Query:      p.QueryBuilder().Build(extraction.Text),
	}

	if refsSearch {
		searched, st := p.Retriever().Search(cmd.Context(), result.Query)
		result.Search = &st
		result.Candidates, result.UsedFallback = p.Retriever().Candidates(result.References, searched)
	}

	return writeRefs(cmd.OutOrStdout(), s.cfg.Output, result)
}

func writeRefs(w io.Writer, format string, result refsOutput) error {
	switch strings.ToLower(format) {
	case report.FormatJSON:
		return report.WriteJSON(w, result)
	case report.FormatYAML:
		return report.WriteYAML(w, result)
	}

	fmt.Fprintf(w, "References (%d):\n", len(result.References))

	for _, ref := range result.References {
		fmt.Fprintf(w, "  %s\n", ref.URL)
	}

	fmt.Fprintf(w, "\nQuery:\n  %s\n", result.Query)

	if result.Search == nil {
		return nil
	}

	switch {
	case result.Search.Skipped:
		fmt.Fprintf(w, "\nSearch (%s): skipped\n", result.Search.Provider)
	case result.Search.Error != "":
		fmt.Fprintf(w, "\nSearch (%s): failed: %s\n", result.Search.Provider, result.Search.Error)
	default:
		fmt.Fprintf(w, "\nSearch (%s): %d result(s)\n", result.Search.Provider, result.Search.Results)
	}

	fmt.Fprintf(w, "\nCandidates (%d):\n", len(result.Candidates))

	for i, c := range result.Candidates {
		fmt.Fprintf(w, "  %d. [%s] %s\n", i+1, c.Origin, c.URL)
	}

	return nil
}
