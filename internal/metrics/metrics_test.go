package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRunCounters(t *testing.T) {
	m := NewRun()

	m.ObservePage("text")
	m.ObservePage("text")
	m.ObservePage("ocr")
	m.ObserveFetch(true, 100*time.Millisecond)
	m.ObserveFetch(false, 2*time.Second)
	m.ObserveFetch(false, time.Second)
	m.ObserveSearch("scholar", 4, nil)
	m.ObserveSearch("scholar", 0, errors.New("blocked"))
	m.ObserveCandidates(6)
	m.ObserveReport(12.5, 2)

	testCases := []struct {
		name     string
		got      float64
		expected float64
	}{
		{"text pages", testutil.ToFloat64(m.pagesTotal.WithLabelValues("text")), 2},
		{"ocr pages", testutil.ToFloat64(m.pagesTotal.WithLabelValues("ocr")), 1},
		{"fetch success", testutil.ToFloat64(m.fetchTotal.WithLabelValues("success")), 1},
		{"fetch failure", testutil.ToFloat64(m.fetchTotal.WithLabelValues("failure")), 2},
		{"search error", testutil.ToFloat64(m.searchTotal.WithLabelValues("scholar", "error")), 1},
		{"search results", testutil.ToFloat64(m.searchResults), 0},
		{"candidates", testutil.ToFloat64(m.candidates), 6},
		{"aggregate", testutil.ToFloat64(m.aggregate), 12.5},
		{"flagged", testutil.ToFloat64(m.flaggedSources), 2},
	}

	for _, tc := range testCases {
		if tc.got != tc.expected {
			t.Errorf("%s = %v, expected %v", tc.name, tc.got, tc.expected)
		}
	}
}

func TestWriteTextfile(t *testing.T) {
	m := NewRun()
	m.ObservePage("text")
	m.Finish(1500 * time.Millisecond)

	path := filepath.Join(t.TempDir(), "plagcheck.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		`plagcheck_extract_pages_total{method="text"} 1`,
		"plagcheck_run_duration_seconds 1.5",
		"# HELP plagcheck_last_run_timestamp_seconds",
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("textfile missing %q:\n%s", want, data)
		}
	}
}
