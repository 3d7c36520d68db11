package cmd

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/btraven00/plagcheck/internal/extractor"
	"github.com/btraven00/plagcheck/internal/report"
)

var (
	outputFile   string
	textMarkdown bool
	textPages    bool
	textNoOCR    bool
)

// textCmd represents the text command
var textCmd = &cobra.Command{
	Use:   "text <document>",
	Short: "Extract the text of a document",
	Long: `Extract the text of a PDF, image or text document exactly as a scan
sees it. Pages without a text layer are passed through OCR when the binary
is built with -tags ocr.

With --markdown the text is normalized (quotes, dashes, spacing) and lines
that look like section headings are formatted as Markdown headings.

Examples:
  plagcheck text paper.pdf
  plagcheck text --pages --output-file paper.txt paper.pdf
  plagcheck text --markdown scan.png`,
	Args: cobra.ExactArgs(1),
	RunE: runText,
}

func init() {
	rootCmd.AddCommand(textCmd)

	textCmd.Flags().StringVarP(&outputFile, "output-file", "f", "", "output file (default: stdout)")
	textCmd.Flags().BoolVar(&textMarkdown, "markdown", false, "normalize the text and format headings as Markdown")
	textCmd.Flags().BoolVar(&textPages, "pages", false, "print per-page extraction details to stderr")
	textCmd.Flags().BoolVar(&textNoOCR, "no-ocr", false, "disable OCR for pages without a text layer")
}

type textOutput struct {
	Extraction *extractor.Result `json:"extraction" yaml:"extraction"`
	Text       string            `json:"text" yaml:"text"`
}

func runText(cmd *cobra.Command, args []string) error {
	filename := args[0]

	if textNoOCR {
		v.Set("ocr.enabled", false)
	}

	s, err := setup(cmd, nil)
	if err != nil {
		return err
	}
	defer func() { _ = s.logger.Sync() }()

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", filename)
	}

	s.reporter.Statusf("Extracting text...")

	result, err := extractor.New(s.cfg.OCR, s.logger, s.reporter).ExtractFromFile(cmd.Context(), filename)
	if err != nil {
		return fmt.Errorf("failed to extract text: %w", err)
	}

	if textPages {
		writePageSummary(cmd.ErrOrStderr(), result)
	}

	text := result.Text
	if textMarkdown {
		text = formatMarkdown(text)
	}

	var w io.Writer = cmd.OutOrStdout()

	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()

		w = f
	}

	switch strings.ToLower(s.cfg.Output) {
	case report.FormatJSON:
		err = report.WriteJSON(w, textOutput{Extraction: result, Text: text})
	case report.FormatYAML:
		err = report.WriteYAML(w, textOutput{Extraction: result, Text: text})
	default:
		_, err = io.WriteString(w, text)
	}

	if err != nil {
		return fmt.Errorf("failed to write text: %w", err)
	}

	if outputFile != "" {
		s.reporter.Statusf("Extracted text written to %s", outputFile)
	}

	return nil
}

func writePageSummary(w io.Writer, result *extractor.Result) {
	fmt.Fprintf(w, "%s: %d page(s), %s\n", result.Filename, len(result.Pages), result.ProcessTime.Round(time.Millisecond))

	for _, page := range result.Pages {
		fmt.Fprintf(w, "  page %d: %s, %d chars", page.Number, page.Method, page.Chars)

		if page.Error != "" {
			fmt.Fprintf(w, " (%s)", page.Error)
		}

		fmt.Fprintln(w)
	}
}

var (
	typography = strings.NewReplacer(
		"\u00a0", " ",
		"\u2010", "-",
		"\u2011", "-",
		"\u2012", "-",
		"\u2013", "-",
		"\u2014", "--",
		"\u201c", `"`,
		"\u201d", `"`,
		"\u2018", "'",
		"\u2019", "'",
	)
	spaceRun       = regexp.MustCompile(`[ \t]+`)
	controlChars   = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	blankLineRun   = regexp.MustCompile(`\n{3,}`)
	numberedHeader = regexp.MustCompile(`^(\d+(?:\.\d+)*)\.?\s+[A-Z]`)
)

// normalizeText straightens typographic quotes and dashes, collapses runs of
// spaces and keeps at most one blank line between paragraphs.
func normalizeText(text string) string {
	lines := strings.Split(text, "\n")

	for i, line := range lines {
		line = typography.Replace(line)
		line = controlChars.ReplaceAllString(line, "")
		lines[i] = strings.TrimSpace(spaceRun.ReplaceAllString(line, " "))
	}

	out := blankLineRun.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")

	return strings.TrimSpace(out)
}

// isHeading guesses whether a line is a section heading.
func isHeading(line string) bool {
	if len(line) < 3 || len(line) > 80 {
		return false
	}

	if numberedHeader.MatchString(line) {
		return true
	}

	if strings.HasSuffix(line, ".") || strings.ContainsAny(line, ",;:") {
		return false
	}

	words := strings.Fields(line)
	if len(words) > 10 {
		return false
	}

	if strings.ToUpper(line) == line {
		return strings.ContainsFunc(line, func(r rune) bool { return r >= 'A' && r <= 'Z' })
	}

	if len(words) < 2 || !startsUpper(words[0]) {
		return false
	}

	capitalized := 0

	for _, word := range words {
		if startsUpper(word) {
			capitalized++
		}
	}

	return float64(capitalized)/float64(len(words)) > 0.5
}

func startsUpper(word string) bool {
	return word != "" && word[0] >= 'A' && word[0] <= 'Z'
}

// headingLevel maps "1." to 2, "2.1" to 3 and so on. Unnumbered all-caps
// headings are level 2, anything else level 3.
func headingLevel(line string) int {
	if m := numberedHeader.FindStringSubmatch(line); m != nil {
		return strings.Count(m[1], ".") + 2
	}

	if strings.ToUpper(line) == line {
		return 2
	}

	return 3
}

// formatMarkdown normalizes text and turns heading lines into Markdown
// headings surrounded by blank lines.
func formatMarkdown(text string) string {
	var b strings.Builder

	for _, line := range strings.Split(normalizeText(text), "\n") {
		if !isHeading(line) {
			b.WriteString(line)
			b.WriteString("\n")

			continue
		}

		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n\n") {
			b.WriteString("\n")
		}

		fmt.Fprintf(&b, "%s %s\n\n", strings.Repeat("#", headingLevel(line)), line)
	}

	return blankLineRun.ReplaceAllString(b.String(), "\n\n")
}
