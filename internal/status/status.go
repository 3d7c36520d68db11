// Package status carries user-facing progress lines ("Using OCR on page 3...")
// from pipeline stages to whatever presents them.
package status

import (
	"fmt"
	"io"
	"sync"
)

// Reporter receives human-readable status lines.
type Reporter interface {
	Statusf(format string, args ...any)
}

// Writer prints status lines to an io.Writer, one per line.
type Writer struct {
	w  io.Writer
	mu sync.Mutex
}

// NewWriter creates a reporter writing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Statusf writes one formatted line.
func (s *Writer) Statusf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintf(s.w, format+"\n", args...)
}

type discard struct{}

func (discard) Statusf(string, ...any) {}

// Discard drops all status lines.
var Discard Reporter = discard{}

// Recorder keeps status lines in memory. Used in tests.
type Recorder struct {
	Lines []string
	mu    sync.Mutex
}

// Statusf records one formatted line.
func (r *Recorder) Statusf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Lines = append(r.Lines, fmt.Sprintf(format, args...))
}
