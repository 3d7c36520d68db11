package extractor

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"code.sajari.com/docconv/v2"
	"github.com/ledongthuc/pdf"
)

// Document is a page-structured input. Page numbers are 1-based.
type Document interface {
	// Format names the backend, e.g. "pdf" or "image".
	Format() string
	NumPages() int
	// PageText returns the embedded text layer of a page, "" when absent.
	PageText(page int) (string, error)
	// RenderPage returns the page as an encoded image for OCR.
	RenderPage(page int, dpi float64) ([]byte, error)
	Close() error
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tif":  true,
	".tiff": true,
	".bmp":  true,
	".gif":  true,
}

// Open reads a document from disk and selects a backend by extension.
func Open(filename string) (Document, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	switch {
	case ext == ".pdf":
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read '%s': %w", filename, err)
		}

		return OpenPDF(data)
	case imageExtensions[ext]:
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read '%s': %w", filename, err)
		}

		return &imageDocument{data: data}, nil
	case ext == ".txt" || ext == ".md" || ext == ".text":
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read '%s': %w", filename, err)
		}

		return &textDocument{format: "text", text: string(data)}, nil
	default:
		response, err := docconv.ConvertPath(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to convert '%s': %w", filename, err)
		}

		return &textDocument{format: strings.TrimPrefix(ext, "."), text: response.Body}, nil
	}
}

// pdfDocument reads the text layer with ledongthuc/pdf and renders pages
// through the OCR renderer when one is compiled in.
type pdfDocument struct {
	reader   *pdf.Reader
	renderer renderer
	data     []byte
	pages    int
}

// OpenPDF parses an in-memory PDF.
func OpenPDF(data []byte) (doc Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse PDF: %w", err)
	}

	return &pdfDocument{reader: reader, data: data, pages: reader.NumPage()}, nil
}

func (d *pdfDocument) Format() string { return "pdf" }

func (d *pdfDocument) NumPages() int { return d.pages }

// PageText recovers from parser panics on malformed pages and reports them
// as an error with an empty text layer.
func (d *pdfDocument) PageText(page int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("page %d: malformed content: %v", page, r)
		}
	}()

	p := d.reader.Page(page)
	if p.V.IsNull() {
		return "", nil
	}

	return joinRows(p.Content().Text), nil
}

// textRow collects the glyphs drawn on one baseline.
type textRow struct {
	y      float64
	size   float64
	glyphs []pdf.Text
}

// joinRows rebuilds the lines of a page from positioned glyphs: glyphs
// sharing a baseline form a row, rows run top to bottom and glyphs left
// to right. A horizontal gap wider than a third of the font size between
// two glyphs becomes a space.
func joinRows(glyphs []pdf.Text) string {
	var rows []*textRow

	for _, g := range glyphs {
		if g.S == "\n" || g.S == "" {
			continue
		}

		var row *textRow
		for _, r := range rows {
			if math.Abs(r.y-g.Y) <= rowTolerance(r.size, g.FontSize) {
				row = r
				break
			}
		}

		if row == nil {
			row = &textRow{y: g.Y, size: g.FontSize}
			rows = append(rows, row)
		}

		row.glyphs = append(row.glyphs, g)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].y > rows[j].y })

	lines := make([]string, 0, len(rows))

	for _, row := range rows {
		sort.SliceStable(row.glyphs, func(i, j int) bool { return row.glyphs[i].X < row.glyphs[j].X })

		var line strings.Builder
		for i, g := range row.glyphs {
			if i > 0 {
				prev := row.glyphs[i-1]
				if g.X-(prev.X+prev.W) > math.Max(g.FontSize, 1)/3 && !strings.HasSuffix(line.String(), " ") && g.S != " " {
					line.WriteByte(' ')
				}
			}

			line.WriteString(g.S)
		}

		text := strings.TrimRight(line.String(), " \t")
		if strings.TrimSpace(text) == "" {
			continue
		}

		lines = append(lines, text)
	}

	return strings.Join(lines, "\n")
}

func rowTolerance(a, b float64) float64 {
	return math.Max(math.Max(a, b)/2, 1)
}

func (d *pdfDocument) RenderPage(page int, dpi float64) ([]byte, error) {
	if d.renderer == nil {
		r, err := newRenderer(d.data)
		if err != nil {
			return nil, err
		}

		d.renderer = r
	}

	return d.renderer.RenderPNG(page, dpi)
}

func (d *pdfDocument) Close() error {
	if d.renderer != nil {
		return d.renderer.Close()
	}

	return nil
}

// imageDocument is a scanned page with no text layer.
type imageDocument struct {
	data []byte
}

func (d *imageDocument) Format() string { return "image" }

func (d *imageDocument) NumPages() int { return 1 }

func (d *imageDocument) PageText(int) (string, error) { return "", nil }

func (d *imageDocument) RenderPage(int, float64) ([]byte, error) { return d.data, nil }

func (d *imageDocument) Close() error { return nil }

// textDocument holds the output of docconv as a single page.
type textDocument struct {
	format string
	text   string
}

func (d *textDocument) Format() string { return d.format }

func (d *textDocument) NumPages() int { return 1 }

func (d *textDocument) PageText(int) (string, error) { return d.text, nil }

func (d *textDocument) RenderPage(int, float64) ([]byte, error) { return nil, ErrNoImage }

func (d *textDocument) Close() error { return nil }

// NewTextDocument wraps plain text as a one-page document.
func NewTextDocument(text string) Document {
	return &textDocument{format: "text", text: text}
}
