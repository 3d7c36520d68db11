package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatHuman = "human"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatCSV   = "csv"
)

// Formats lists the supported output formats.
var Formats = []string{FormatHuman, FormatJSON, FormatYAML, FormatCSV}

// ValidFormat reports whether format is supported.
func ValidFormat(format string) bool {
	for _, f := range Formats {
		if strings.EqualFold(f, format) {
			return true
		}
	}

	return false
}

// Write renders r in the given format.
func Write(w io.Writer, format string, r *Report) error {
	switch strings.ToLower(format) {
	case FormatJSON:
		return WriteJSON(w, r)
	case FormatYAML:
		return WriteYAML(w, r)
	case FormatCSV:
		return WriteCSV(w, r)
	case FormatHuman, "":
		return WriteHuman(w, r)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	return encoder.Encode(v)
}

// WriteYAML writes v as YAML.
func WriteYAML(w io.Writer, v any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)

	if err := encoder.Encode(v); err != nil {
		return err
	}

	return encoder.Close()
}

// WriteCSV writes one row per candidate source.
func WriteCSV(w io.Writer, r *Report) error {
	writer := csv.NewWriter(w)

	header := []string{"source", "url", "origin", "fetched", "score", "flagged", "error"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, src := range r.Sources {
		row := []string{
			strconv.Itoa(src.Number),
			src.URL,
			src.Origin,
			strconv.FormatBool(src.Fetched),
			strconv.FormatFloat(src.Score, 'f', 4, 64),
			strconv.FormatBool(src.Flagged),
			src.Error,
		}

		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()

	return writer.Error()
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	alertStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	excerptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).Width(78)
)

const barWidth = 40

// WriteHuman writes a styled terminal report.
func WriteHuman(w io.Writer, r *Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", titleStyle.Render("Similarity Score:"), scoreStyle(r.Aggregate).Render(fmt.Sprintf("%.2f%%", r.Aggregate)))
	fmt.Fprintf(&b, "%s\n", ProportionBar(r.Proportion, barWidth))
	fmt.Fprintf(&b, "%s\n", mutedStyle.Render(fmt.Sprintf("Original %.1f%% | Plagiarized %.1f%%", r.Proportion.Original, r.Proportion.Plagiarized)))

	if len(r.Sources) > 0 {
		fmt.Fprintf(&b, "\n%s\n", titleStyle.Render(fmt.Sprintf("Sources (%d scored, max %.2f%%):", r.Scored, r.MaxScore*100)))

		for _, src := range r.Sources {
			switch {
			case !src.Fetched:
				fmt.Fprintf(&b, "  %2d. %s %s\n", src.Number, mutedStyle.Render("  n/a  "), mutedStyle.Render(src.URL+" ("+src.Error+")"))
			case src.Flagged:
				fmt.Fprintf(&b, "  %2d. %s %s\n", src.Number, alertStyle.Render(fmt.Sprintf("%6.2f%%", src.Score*100)), src.URL)
			default:
				fmt.Fprintf(&b, "  %2d. %s %s\n", src.Number, okStyle.Render(fmt.Sprintf("%6.2f%%", src.Score*100)), src.URL)
			}
		}
	}

	if len(r.Flagged) > 0 {
		fmt.Fprintf(&b, "\n%s\n", titleStyle.Render("Highlighted Plagiarized Sentences:"))

		for _, ex := range r.Flagged {
			fmt.Fprintf(&b, "%s\n", warnStyle.Render(fmt.Sprintf("From Source %d (%.2f%%):", ex.SourceNumber, ex.Score*100)))
			fmt.Fprintf(&b, "%s\n", excerptStyle.Render(ex.Text))
		}
	}

	if r.Note != "" {
		fmt.Fprintf(&b, "\n%s\n", mutedStyle.Render(r.Note))
	}

	_, err := io.WriteString(w, b.String())

	return err
}

// ProportionBar draws the original/plagiarized split as a bar of width
// cells.
func ProportionBar(p Proportion, width int) string {
	filled := int(p.Plagiarized/100*float64(width) + 0.5)
	filled = max(0, min(width, filled))

	return alertStyle.Render(strings.Repeat("█", filled)) +
		okStyle.Render(strings.Repeat("░", width-filled))
}

func scoreStyle(percent float64) lipgloss.Style {
	switch {
	case percent >= 50:
		return alertStyle
	case percent >= 10:
		return warnStyle
	default:
		return okStyle
	}
}
