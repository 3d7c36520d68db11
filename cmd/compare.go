package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/btraven00/plagcheck/internal/discovery"
	"github.com/btraven00/plagcheck/internal/extractor"
	"github.com/btraven00/plagcheck/internal/pipeline"
	"github.com/btraven00/plagcheck/internal/retriever"
)

// compareCmd represents the compare command
var compareCmd = &cobra.Command{
	Use:   "compare <document> <source>...",
	Short: "Score a document against local source files",
	Long: `Compare scores a document against source files on disk, with no search
and no network access. Sources are read like documents (PDF, image, text)
except HTML files, whose visible text is used. Every source goes through
the same cleaning as a fetched page.

Examples:
  plagcheck compare essay.pdf source1.html source2.pdf
  plagcheck compare -o csv --threshold 0.3 essay.txt sources/*.txt`,
	Args: cobra.MinimumNArgs(2),
	RunE: runCompare,
}

var compareFlagKeys = map[string]string{
	"threshold": "report.threshold",
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().Float64("threshold", 0.1, "similarity score above which a source is flagged")
}

func runCompare(cmd *cobra.Command, args []string) error {
	s, err := setup(cmd, compareFlagKeys)
	if err != nil {
		return err
	}
	defer func() { _ = s.logger.Sync() }()

	p, err := pipeline.New(s.cfg, s.logger, s.reporter)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	s.reporter.Statusf("Extracting text...")

	extraction, err := p.Extractor().ExtractFromFile(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to extract text: %w", err)
	}

	sources, err := readSources(ctx, p.Extractor(), args[1:])
	if err != nil {
		return err
	}

	res, err := p.Compare(ctx, s.runID, extraction, sources)
	if err != nil {
		return err
	}

	return writeResult(cmd.OutOrStdout(), s.cfg.Output, res)
}

// readSources reads every source file in argument order.
func readSources(ctx context.Context, ex *extractor.TextExtractor, filenames []string) ([]retriever.SourceText, error) {
	sources := make([]retriever.SourceText, 0, len(filenames))

	for i, filename := range filenames {
		text, err := readSource(ctx, ex, filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read source %s: %w", filename, err)
		}

		sources = append(sources, retriever.SourceText{
			Index:     i,
			Reference: discovery.Reference{URL: filename, Origin: discovery.OriginLocal},
			Text:      text,
		})
	}

	return sources, nil
}

func readSource(ctx context.Context, ex *extractor.TextExtractor, filename string) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".html", ".htm":
		f, err := os.Open(filename)
		if err != nil {
			return "", err
		}
		defer f.Close()

		return retriever.VisibleText(f)
	default:
		result, err := ex.ExtractFromFile(ctx, filename)
		if err != nil {
			return "", err
		}

		return result.Text, nil
	}
}
