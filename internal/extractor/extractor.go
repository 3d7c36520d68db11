// Package extractor turns an input document into one normalized text string,
// falling back to optical character recognition for pages without a text
// layer.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/btraven00/plagcheck/internal/status"
)

// Recognizer performs OCR on an encoded image (PNG, JPEG, TIFF, ...).
type Recognizer interface {
	Recognize(image []byte) (string, error)
	Close() error
}

type renderer interface {
	RenderPNG(page int, dpi float64) ([]byte, error)
	Close() error
}

// TextExtractor extracts text page by page.
type TextExtractor struct {
	logger     *zap.Logger
	status     status.Reporter
	recognizer Recognizer
	options    Options
}

// New creates a TextExtractor. The OCR engine is started lazily on the first
// page that needs it.
func New(options Options, logger *zap.Logger, reporter status.Reporter) *TextExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}

	if reporter == nil {
		reporter = status.Discard
	}

	if options.DPI <= 0 {
		options.DPI = DefaultOptions().DPI
	}

	return &TextExtractor{
		options: options,
		logger:  logger,
		status:  reporter,
	}
}

// WithRecognizer replaces the OCR engine.
func (e *TextExtractor) WithRecognizer(r Recognizer) *TextExtractor {
	e.recognizer = r
	return e
}

// ExtractFromFile opens filename and extracts its text. Only failure to open
// the document is an error; unreadable pages contribute empty segments.
func (e *TextExtractor) ExtractFromFile(ctx context.Context, filename string) (*Result, error) {
	doc, err := Open(filename)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	result, err := e.Extract(ctx, doc)
	if err != nil {
		return nil, err
	}

	result.Filename = filename

	return result, nil
}

// ExtractPDFText returns the text layer of an in-memory PDF without OCR.
func ExtractPDFText(data []byte) (string, error) {
	doc, err := OpenPDF(data)
	if err != nil {
		return "", err
	}
	defer doc.Close()

	result, err := New(Options{OCR: false}, nil, nil).Extract(context.Background(), doc)
	if err != nil {
		return "", err
	}

	return result.Text, nil
}

// Extract concatenates each page's text in order, each followed by "\n".
func (e *TextExtractor) Extract(ctx context.Context, doc Document) (*Result, error) {
	start := time.Now()

	result := &Result{
		Format: doc.Format(),
		Pages:  make([]PageResult, 0, doc.NumPages()),
	}

	var text strings.Builder

	ownRecognizer := false
	ocrUnavailable := false
	defer func() {
		if ownRecognizer && e.recognizer != nil {
			e.recognizer.Close()
			e.recognizer = nil
		}
	}()

	for page := 1; page <= doc.NumPages(); page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pr := PageResult{Number: page, Method: MethodText}

		pageText, err := doc.PageText(page)
		if err != nil {
			e.logger.Warn("text layer extraction failed", zap.Int("page", page), zap.Error(err))
			pr.Error = err.Error()
		}

		if strings.TrimSpace(pageText) == "" {
			pageText = ""
			pr.Method = MethodEmpty

			if e.options.OCR && !ocrUnavailable {
				e.status.Statusf("Using OCR on page %d...", page)

				created, ocrText, ocrErr := e.recognizePage(doc, page)
				ownRecognizer = ownRecognizer || created

				if errors.Is(ocrErr, ErrOCRNotEnabled) {
					ocrUnavailable = true
				}

				if ocrErr != nil {
					e.logger.Warn("OCR failed", zap.Int("page", page), zap.Error(ocrErr))
					pr.Error = ocrErr.Error()
				} else if strings.TrimSpace(ocrText) != "" {
					pageText = ocrText
					pr.Method = MethodOCR
					pr.Error = ""
				}
			}
		}

		pageText = normalize(pageText)
		pr.Chars = len(pageText)
		result.Pages = append(result.Pages, pr)

		e.logger.Debug("page extracted",
			zap.Int("page", page),
			zap.String("method", string(pr.Method)),
			zap.Int("chars", pr.Chars))

		text.WriteString(pageText)
		text.WriteString("\n")
	}

	result.Text = text.String()
	result.ProcessTime = time.Since(start)

	e.logger.Info("document extracted",
		zap.String("format", result.Format),
		zap.Int("pages", len(result.Pages)),
		zap.Ints("ocr_pages", result.OCRPages()),
		zap.Ints("empty_pages", result.EmptyPages()),
		zap.Int("chars", len(result.Text)))

	return result, nil
}

// recognizePage renders a page and runs OCR on it. created reports whether
// this call started the OCR engine.
func (e *TextExtractor) recognizePage(doc Document, page int) (created bool, text string, err error) {
	img, err := doc.RenderPage(page, e.options.DPI)
	if err != nil {
		if errors.Is(err, ErrNoImage) {
			return false, "", nil
		}

		return false, "", fmt.Errorf("render page %d: %w", page, err)
	}

	if e.recognizer == nil {
		r, err := newRecognizer(e.options.Language)
		if err != nil {
			return false, "", err
		}

		e.recognizer = r
		created = true
	}

	text, err = e.recognizer.Recognize(img)
	if err != nil {
		return created, "", fmt.Errorf("recognize page %d: %w", page, err)
	}

	return created, text, nil
}

// normalize applies NFKC so ligatures and full-width forms from PDFs compare
// equal to plain text, and unifies line endings.
func normalize(s string) string {
	if s == "" {
		return s
	}

	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	return norm.NFKC.String(s)
}
