package extractor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/btraven00/plagcheck/internal/status"
)

// fakeDocument serves fixed text layers and images per page.
type fakeDocument struct {
	texts   []string
	images  [][]byte
	textErr map[int]error
	closed  bool
}

func (d *fakeDocument) Format() string { return "fake" }

func (d *fakeDocument) NumPages() int { return len(d.texts) }

func (d *fakeDocument) PageText(page int) (string, error) {
	if err := d.textErr[page]; err != nil {
		return "", err
	}

	return d.texts[page-1], nil
}

func (d *fakeDocument) RenderPage(page int, _ float64) ([]byte, error) {
	if d.images == nil || d.images[page-1] == nil {
		return nil, ErrNoImage
	}

	return d.images[page-1], nil
}

func (d *fakeDocument) Close() error {
	d.closed = true
	return nil
}

// fakeRecognizer maps image bytes to recognized text.
type fakeRecognizer struct {
	texts map[string]string
	calls int
}

func (r *fakeRecognizer) Recognize(image []byte) (string, error) {
	r.calls++

	text, ok := r.texts[string(image)]
	if !ok {
		return "", errors.New("unreadable image")
	}

	return text, nil
}

func (r *fakeRecognizer) Close() error { return nil }

func TestExtractTextLayer(t *testing.T) {
	doc := &fakeDocument{texts: []string{"Page one text", "Page two text"}}
	extractor := New(DefaultOptions(), nil, nil)

	result, err := extractor.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	expected := "Page one text\nPage two text\n"
	if result.Text != expected {
		t.Errorf("Text = %q, expected %q", result.Text, expected)
	}

	if len(result.Pages) != 2 {
		t.Fatalf("expected 2 page results, got %d", len(result.Pages))
	}

	for _, p := range result.Pages {
		if p.Method != MethodText {
			t.Errorf("page %d method = %s, expected text", p.Number, p.Method)
		}
	}

	if len(result.OCRPages()) != 0 {
		t.Errorf("expected no OCR pages, got %v", result.OCRPages())
	}
}

func TestExtractFallsBackToOCR(t *testing.T) {
	doc := &fakeDocument{
		texts:  []string{"Embedded", "   ", ""},
		images: [][]byte{nil, []byte("img2"), []byte("img3")},
	}
	recognizer := &fakeRecognizer{texts: map[string]string{"img2": "Scanned words"}}
	recorder := &status.Recorder{}

	extractor := New(DefaultOptions(), nil, recorder).WithRecognizer(recognizer)

	result, err := extractor.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	expected := "Embedded\nScanned words\n\n"
	if result.Text != expected {
		t.Errorf("Text = %q, expected %q", result.Text, expected)
	}

	if got := result.OCRPages(); len(got) != 1 || got[0] != 2 {
		t.Errorf("OCRPages() = %v, expected [2]", got)
	}

	if got := result.EmptyPages(); len(got) != 1 || got[0] != 3 {
		t.Errorf("EmptyPages() = %v, expected [3]", got)
	}

	if result.Pages[2].Error == "" {
		t.Error("expected the unreadable page to carry an error")
	}

	if recognizer.calls != 2 {
		t.Errorf("expected 2 OCR calls, got %d", recognizer.calls)
	}

	if len(recorder.Lines) != 2 || recorder.Lines[0] != "Using OCR on page 2..." {
		t.Errorf("unexpected status lines: %v", recorder.Lines)
	}
}

func TestExtractOCRDisabled(t *testing.T) {
	doc := &fakeDocument{
		texts:  []string{""},
		images: [][]byte{[]byte("img")},
	}
	recognizer := &fakeRecognizer{texts: map[string]string{"img": "text"}}

	extractor := New(Options{OCR: false}, nil, nil).WithRecognizer(recognizer)

	result, err := extractor.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if result.Text != "\n" {
		t.Errorf("Text = %q, expected a single empty segment", result.Text)
	}

	if recognizer.calls != 0 {
		t.Errorf("recognizer should not be called, got %d calls", recognizer.calls)
	}
}

func TestExtractTextLayerErrorIsNotFatal(t *testing.T) {
	doc := &fakeDocument{
		texts:   []string{"first", "second"},
		textErr: map[int]error{1: errors.New("broken content stream")},
	}

	result, err := New(Options{}, nil, nil).Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if result.Text != "\nsecond\n" {
		t.Errorf("Text = %q", result.Text)
	}

	if result.Pages[0].Method != MethodEmpty || result.Pages[0].Error == "" {
		t.Errorf("unexpected page result %+v", result.Pages[0])
	}
}

func TestExtractHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(DefaultOptions(), nil, nil).Extract(ctx, &fakeDocument{texts: []string{"x"}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestNormalize(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"ﬁnal ﬂow", "final flow"},
		{"ＡＢＣ", "ABC"},
		{"line\r\nbreak\rmac", "line\nbreak\nmac"},
		{"", ""},
	}

	for _, tc := range testCases {
		if got := normalize(tc.input); got != tc.expected {
			t.Errorf("normalize(%q) = %q, expected %q", tc.input, got, tc.expected)
		}
	}
}

func TestExtractFromFilePlainText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "paper.txt")

	if err := os.WriteFile(path, []byte("Title line\nhttps://example.com/ref\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := New(DefaultOptions(), nil, nil).ExtractFromFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ExtractFromFile failed: %v", err)
	}

	if !strings.Contains(result.Text, "https://example.com/ref") {
		t.Errorf("expected reference line in text, got %q", result.Text)
	}

	if result.Filename != path {
		t.Errorf("Filename = %q, expected %q", result.Filename, path)
	}

	if len(result.Pages) != 1 {
		t.Errorf("expected a single page, got %d", len(result.Pages))
	}
}

func TestExtractFromFileMissing(t *testing.T) {
	_, err := New(DefaultOptions(), nil, nil).ExtractFromFile(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	if err == nil {
		t.Error("expected an error for a missing document")
	}
}

func TestOpenPDFRejectsGarbage(t *testing.T) {
	if _, err := OpenPDF([]byte("definitely not a pdf")); err == nil {
		t.Error("expected an error for non-PDF bytes")
	}
}

func TestImageDocumentNeedsOCR(t *testing.T) {
	doc := &imageDocument{data: []byte("png-bytes")}
	recognizer := &fakeRecognizer{texts: map[string]string{"png-bytes": "from the scan"}}

	result, err := New(DefaultOptions(), nil, nil).WithRecognizer(recognizer).Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if result.Text != "from the scan\n" {
		t.Errorf("Text = %q", result.Text)
	}

	if result.Format != "image" {
		t.Errorf("Format = %q, expected image", result.Format)
	}
}
