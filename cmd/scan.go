package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/btraven00/plagcheck/internal/config"
	"github.com/btraven00/plagcheck/internal/metrics"
	"github.com/btraven00/plagcheck/internal/pipeline"
	"github.com/btraven00/plagcheck/internal/report"
)

var scanShowText bool

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan <document>",
	Short: "Check a document for plagiarism against web sources",
	Long: `Scan runs the full check on a PDF, image or text document:

  1. extract the text, using OCR for pages without a text layer
  2. collect declared reference URLs (lines that are a URL on their own)
  3. search for the opening lines with the configured provider
  4. fetch every candidate source and strip page chrome
  5. score the document against each source and report

Sources that cannot be fetched are reported and skipped. With no declared
references a configured list of fallback sources is used instead.

Examples:
  plagcheck scan paper.pdf
  plagcheck scan --threshold 0.2 --provider crossref paper.pdf
  plagcheck scan -o json --metrics-file /var/lib/node_exporter/plagcheck.prom paper.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

var scanFlagKeys = map[string]string{
	"threshold":       "report.threshold",
	"max-results":     "search.max_results",
	"provider":        "search.provider",
	"workers":         "fetch.workers",
	"timeout":         "fetch.timeout",
	"rate-limit":      "fetch.rate_limit",
	"fallback-policy": "sources.fallback_policy",
	"readability":     "cleaner.readability",
	"metrics-file":    "metrics.file",
}

func init() {
	rootCmd.AddCommand(scanCmd)

	d := config.Default()
	scanCmd.Flags().Float64("threshold", d.Report.Threshold, "similarity score above which a source is flagged")
	scanCmd.Flags().Int("max-results", d.Search.MaxResults, "maximum number of search results to use")
	scanCmd.Flags().String("provider", d.Search.Provider, "search provider (scholar, crossref, none)")
	scanCmd.Flags().Int("workers", d.Fetch.Workers, "number of sources fetched concurrently")
	scanCmd.Flags().Duration("timeout", d.Fetch.Timeout, "timeout for each HTTP request")
	scanCmd.Flags().Float64("rate-limit", d.Fetch.RateLimit, "maximum HTTP requests per second (0 for no limit)")
	scanCmd.Flags().String("fallback-policy", d.Sources.FallbackPolicy, "when to use fallback sources (no-declared, no-candidates)")
	scanCmd.Flags().Bool("readability", d.Cleaner.Readability, "keep only the main content block of HTML sources")
	scanCmd.Flags().Bool("no-ocr", false, "disable OCR for pages without a text layer")
	scanCmd.Flags().String("metrics-file", "", "write Prometheus metrics to this textfile")
	scanCmd.Flags().BoolVar(&scanShowText, "show-text", false, "print the extracted document text before the report")
}

func runScan(cmd *cobra.Command, args []string) error {
	// --no-ocr is the inverse of ocr.enabled, so it is not bound.
	if noOCR, _ := cmd.Flags().GetBool("no-ocr"); noOCR {
		v.Set("ocr.enabled", false)
	}

	s, err := setup(cmd, scanFlagKeys)
	if err != nil {
		return err
	}
	defer func() { _ = s.logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := scanDocument(ctx, s, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if scanShowText && strings.EqualFold(s.cfg.Output, report.FormatHuman) {
		fmt.Fprintln(out, res.Text)
		fmt.Fprintln(out)
	}

	return writeResult(out, s.cfg.Output, res)
}

// scanDocument runs the pipeline and writes the metrics textfile if one is
// configured. The textfile is written even when the run fails.
func scanDocument(ctx context.Context, s *session, filename string) (*pipeline.Result, error) {
	p, err := pipeline.New(s.cfg, s.logger, s.reporter)
	if err != nil {
		return nil, err
	}

	var m *metrics.Run
	if s.cfg.Metrics.File != "" {
		m = metrics.NewRun()
		p.WithMetrics(m)
	}

	res, runErr := p.Run(ctx, s.runID, filename)

	if m != nil {
		if err := m.WriteTextfile(s.cfg.Metrics.File); err != nil {
			s.logger.Warn("failed to write metrics textfile", zap.String("file", s.cfg.Metrics.File), zap.Error(err))
		}
	}

	if runErr != nil {
		return nil, fmt.Errorf("failed to check %s: %w", filename, runErr)
	}

	return res, nil
}

// writeResult writes the report. JSON and YAML carry the whole run record,
// the human and CSV renderings only the report.
func writeResult(w io.Writer, format string, res *pipeline.Result) error {
	switch strings.ToLower(format) {
	case report.FormatJSON:
		return report.WriteJSON(w, res)
	case report.FormatYAML:
		return report.WriteYAML(w, res)
	default:
		return report.Write(w, format, res.Report)
	}
}
