package extractor

import (
	"errors"
	"time"
)

// ErrOCRNotEnabled is returned by the OCR entry points when the binary was
// built without the "ocr" tag. Rebuild with -tags ocr to enable Tesseract.
var ErrOCRNotEnabled = errors.New("OCR support not enabled; rebuild with -tags ocr")

// ErrNoImage is returned by documents whose pages cannot be rendered.
var ErrNoImage = errors.New("page has no renderable image")

// Method records where a page's text came from.
type Method string

const (
	MethodText  Method = "text"
	MethodOCR   Method = "ocr"
	MethodEmpty Method = "empty"
)

// PageResult describes the extraction of a single page.
type PageResult struct {
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
	Method Method `json:"method" yaml:"method"`
	Number int    `json:"number" yaml:"number"`
	Chars  int    `json:"chars" yaml:"chars"`
}

// Result is the text of a whole document.
type Result struct {
	Filename    string        `json:"filename" yaml:"filename"`
	Format      string        `json:"format" yaml:"format"`
	Text        string        `json:"-" yaml:"-"`
	Pages       []PageResult  `json:"pages" yaml:"pages"`
	ProcessTime time.Duration `json:"process_time" yaml:"process_time"`
}

// OCRPages returns the 1-based numbers of pages whose text came from OCR.
func (r *Result) OCRPages() []int {
	var pages []int

	for _, p := range r.Pages {
		if p.Method == MethodOCR {
			pages = append(pages, p.Number)
		}
	}

	return pages
}

// EmptyPages returns the 1-based numbers of pages that yielded no text.
func (r *Result) EmptyPages() []int {
	var pages []int

	for _, p := range r.Pages {
		if p.Method == MethodEmpty {
			pages = append(pages, p.Number)
		}
	}

	return pages
}

// Options configures text extraction.
type Options struct {
	// Language is the Tesseract language spec, e.g. "eng" or "eng+ind".
	Language string `json:"language" mapstructure:"language"`
	// DPI used when rendering a page for OCR.
	DPI float64 `json:"dpi" mapstructure:"dpi"`
	// OCR enables the optical recognition fallback.
	OCR bool `json:"ocr" mapstructure:"enabled"`
}

// DefaultOptions returns default extraction options.
func DefaultOptions() Options {
	return Options{
		OCR:      true,
		Language: "eng",
		DPI:      300,
	}
}
