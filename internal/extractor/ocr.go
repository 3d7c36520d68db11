//go:build ocr

// OCR support wraps the Tesseract engine via gosseract and renders PDF pages
// with MuPDF via go-fitz. Both need cgo and native libraries. On Ubuntu/Debian:
//
//	apt-get install tesseract-ocr libtesseract-dev libleptonica-dev

package extractor

import (
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/otiai10/gosseract/v2"
)

// OCREnabled reports whether OCR support is compiled in.
const OCREnabled = true

type tesseract struct {
	client *gosseract.Client
}

func newRecognizer(language string) (Recognizer, error) {
	client := gosseract.NewClient()

	if language != "" {
		if err := client.SetLanguage(strings.Split(language, "+")...); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set OCR language %q: %w", language, err)
		}
	}

	return &tesseract{client: client}, nil
}

// Recognize returns the recognized text with surrounding whitespace trimmed.
func (t *tesseract) Recognize(image []byte) (string, error) {
	if err := t.client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := t.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}

	return strings.TrimSpace(text), nil
}

func (t *tesseract) Close() error {
	if t.client != nil {
		return t.client.Close()
	}

	return nil
}

type fitzRenderer struct {
	doc *fitz.Document
}

func newRenderer(data []byte) (renderer, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF for rendering: %w", err)
	}

	return &fitzRenderer{doc: doc}, nil
}

// RenderPNG renders a 1-based page number.
func (r *fitzRenderer) RenderPNG(page int, dpi float64) ([]byte, error) {
	return r.doc.ImagePNG(page-1, dpi)
}

func (r *fitzRenderer) Close() error {
	return r.doc.Close()
}
