package retriever

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/btraven00/plagcheck/internal/discovery"
	"github.com/btraven00/plagcheck/internal/resilience"
	"github.com/btraven00/plagcheck/internal/status"
)

// stubProvider returns fixed links or an error.
type stubProvider struct {
	err   error
	links []string
	calls int
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Search(_ context.Context, _ string, limit int) ([]string, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}

	if len(p.links) > limit {
		return p.links[:limit], nil
	}

	return p.links, nil
}

// countingObserver records observations.
type countingObserver struct {
	fetchOK, fetchFailed, searches int
	mu                             sync.Mutex
}

func (o *countingObserver) ObserveFetch(ok bool, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if ok {
		o.fetchOK++
	} else {
		o.fetchFailed++
	}
}

func (o *countingObserver) ObserveSearch(string, int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.searches++
}

func newTestRetriever(t *testing.T, options Options, reporter status.Reporter) *Retriever {
	t.Helper()

	r, err := New(options, nil, nil, reporter)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	return r
}

func refs(origin discovery.Origin, urls ...string) []discovery.Reference {
	out := make([]discovery.Reference, len(urls))
	for i, u := range urls {
		out[i] = discovery.Reference{URL: u, Origin: origin}
	}

	return out
}

func TestNewUnknownProvider(t *testing.T) {
	options := DefaultOptions()
	options.Provider = "altavista"

	if _, err := New(options, nil, nil, nil); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestCandidates(t *testing.T) {
	declared := refs(discovery.OriginDeclared, "https://a.example.com/x", "https://a.example.com/x")
	searched := refs(discovery.OriginSearched, "https://s1.example.com", "https://s2.example.com")

	testCases := []struct {
		name         string
		policy       FallbackPolicy
		declared     []discovery.Reference
		searched     []discovery.Reference
		expected     []string
		usedFallback bool
	}{
		{
			name:     "declared then searched, duplicates kept",
			policy:   FallbackNoDeclared,
			declared: declared,
			searched: searched,
			expected: []string{"https://a.example.com/x", "https://a.example.com/x", "https://s1.example.com", "https://s2.example.com"},
		},
		{
			name:         "no declared uses fallback before search results",
			policy:       FallbackNoDeclared,
			searched:     searched,
			expected:     append(append([]string{}, DefaultFallbackSources...), "https://s1.example.com", "https://s2.example.com"),
			usedFallback: true,
		},
		{
			name:         "no declared and no search results",
			policy:       FallbackNoDeclared,
			expected:     DefaultFallbackSources,
			usedFallback: true,
		},
		{
			name:     "no-candidates policy keeps search results alone",
			policy:   FallbackNoCandidates,
			searched: searched,
			expected: []string{"https://s1.example.com", "https://s2.example.com"},
		},
		{
			name:         "no-candidates policy with nothing found",
			policy:       FallbackNoCandidates,
			expected:     DefaultFallbackSources,
			usedFallback: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			options := DefaultOptions()
			options.FallbackPolicy = tc.policy
			r := newTestRetriever(t, options, nil)

			got, usedFallback := r.Candidates(tc.declared, tc.searched)
			if strings.Join(discovery.URLs(got), ",") != strings.Join(tc.expected, ",") {
				t.Errorf("candidates = %v, expected %v", discovery.URLs(got), tc.expected)
			}

			if usedFallback != tc.usedFallback {
				t.Errorf("usedFallback = %v, expected %v", usedFallback, tc.usedFallback)
			}

			if usedFallback && got[0].Origin != discovery.OriginFallback {
				t.Errorf("fallback origin = %s", got[0].Origin)
			}
		})
	}
}

func TestSearchCapsResults(t *testing.T) {
	provider := &stubProvider{links: []string{"https://1.ex.com", "https://2.ex.com", "https://3.ex.com", "https://4.ex.com", "https://5.ex.com", "https://6.ex.com", "https://7.ex.com"}}
	observer := &countingObserver{}

	r := newTestRetriever(t, DefaultOptions(), nil).WithProvider(provider).WithObserver(observer)

	got, st := r.Search(context.Background(), "a query")
	if len(got) != DefaultMaxResults {
		t.Fatalf("expected %d results, got %d", DefaultMaxResults, len(got))
	}

	if got[0].URL != "https://1.ex.com" || got[4].URL != "https://5.ex.com" {
		t.Errorf("results not in listing order: %v", discovery.URLs(got))
	}

	if got[0].Origin != discovery.OriginSearched {
		t.Errorf("origin = %s, expected searched", got[0].Origin)
	}

	if st.Results != DefaultMaxResults || st.Error != "" || st.Skipped {
		t.Errorf("unexpected status %+v", st)
	}

	if observer.searches != 1 {
		t.Errorf("expected 1 observed search, got %d", observer.searches)
	}
}

func TestSearchFailureYieldsNoResults(t *testing.T) {
	provider := &stubProvider{err: errors.New("blocked")}
	recorder := &status.Recorder{}

	r := newTestRetriever(t, DefaultOptions(), recorder).WithProvider(provider)

	got, st := r.Search(context.Background(), "a query")
	if len(got) != 0 {
		t.Errorf("expected no results, got %v", got)
	}

	if st.Error == "" {
		t.Error("expected the search failure to be recorded")
	}

	if len(recorder.Lines) != 1 || !strings.Contains(recorder.Lines[0], "blocked") {
		t.Errorf("unexpected status lines %v", recorder.Lines)
	}
}

func TestSearchSkipsEmptyQuery(t *testing.T) {
	provider := &stubProvider{links: []string{"https://1.ex.com"}}
	r := newTestRetriever(t, DefaultOptions(), nil).WithProvider(provider)

	got, st := r.Search(context.Background(), "   ")
	if len(got) != 0 || !st.Skipped {
		t.Errorf("expected skipped search, got %v %+v", got, st)
	}

	if provider.calls != 0 {
		t.Errorf("provider should not be called, got %d calls", provider.calls)
	}
}

func TestSearchNoneProvider(t *testing.T) {
	options := DefaultOptions()
	options.Provider = "none"

	got, st := newTestRetriever(t, options, nil).Search(context.Background(), "query")
	if len(got) != 0 || !st.Skipped {
		t.Errorf("expected skipped search, got %v %+v", got, st)
	}
}

func newSourceServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><body><nav>Login</nav><p>Deep learning methods for text</p></body></html>`))
	})
	mux.HandleFunc("/plain", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("plain source text"))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/image", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte{0x89, 'P', 'N', 'G'})
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(20 * time.Millisecond)
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("slow text"))
	})

	return httptest.NewServer(mux)
}

func TestFetchRecordsFailuresAndKeepsOrder(t *testing.T) {
	server := newSourceServer()
	defer server.Close()

	recorder := &status.Recorder{}
	observer := &countingObserver{}
	r := newTestRetriever(t, DefaultOptions(), recorder).WithObserver(observer)

	candidates := refs(discovery.OriginDeclared,
		server.URL+"/article",
		server.URL+"/missing",
		server.URL+"/image",
		server.URL+"/plain",
		"http://127.0.0.1:1/unreachable",
	)

	texts, statuses := r.Fetch(context.Background(), candidates)

	if len(statuses) != len(candidates) {
		t.Fatalf("expected %d statuses, got %d", len(candidates), len(statuses))
	}

	expectedOK := []bool{true, false, false, true, false}
	for i, st := range statuses {
		if st.Index != i {
			t.Errorf("status %d has index %d", i, st.Index)
		}

		if st.OK != expectedOK[i] {
			t.Errorf("status %d OK = %v, expected %v (%s)", i, st.OK, expectedOK[i], st.Error)
		}

		if !st.OK && st.Error == "" {
			t.Errorf("status %d should carry an error", i)
		}
	}

	if statuses[1].StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 recorded, got %d", statuses[1].StatusCode)
	}

	if len(texts) != 2 {
		t.Fatalf("expected 2 texts, got %d", len(texts))
	}

	if texts[0].Index != 0 || texts[1].Index != 3 {
		t.Errorf("text indices = %d, %d; expected 0, 3", texts[0].Index, texts[1].Index)
	}

	if !strings.Contains(texts[0].Text, "Deep learning methods for text") {
		t.Errorf("unexpected text %q", texts[0].Text)
	}

	if texts[1].Text != "plain source text" {
		t.Errorf("unexpected text %q", texts[1].Text)
	}

	if len(recorder.Lines) != 3 || !strings.HasPrefix(recorder.Lines[0], "Could not access ") {
		t.Errorf("unexpected status lines %v", recorder.Lines)
	}

	if observer.fetchOK != 2 || observer.fetchFailed != 3 {
		t.Errorf("observer counts ok=%d failed=%d", observer.fetchOK, observer.fetchFailed)
	}
}

func TestFetchWithWorkersPreservesOrder(t *testing.T) {
	server := newSourceServer()
	defer server.Close()

	options := DefaultOptions()
	options.Workers = 4
	r := newTestRetriever(t, options, nil)

	candidates := refs(discovery.OriginSearched,
		server.URL+"/slow",
		server.URL+"/plain",
		server.URL+"/slow",
		server.URL+"/plain",
	)

	texts, statuses := r.Fetch(context.Background(), candidates)
	if len(texts) != 4 {
		t.Fatalf("expected 4 texts, got %d", len(texts))
	}

	expected := []string{"slow text", "plain source text", "slow text", "plain source text"}
	for i, text := range texts {
		if text.Index != i || text.Text != expected[i] {
			t.Errorf("text %d = (%d, %q), expected (%d, %q)", i, text.Index, text.Text, i, expected[i])
		}

		if statuses[i].Reference.URL != candidates[i].URL {
			t.Errorf("status %d is for %s", i, statuses[i].Reference.URL)
		}
	}
}

func TestFetchEmptyCandidates(t *testing.T) {
	texts, statuses := newTestRetriever(t, DefaultOptions(), nil).Fetch(context.Background(), nil)
	if len(texts) != 0 || len(statuses) != 0 {
		t.Errorf("expected nothing, got %v %v", texts, statuses)
	}
}

func TestFetchCancelled(t *testing.T) {
	server := newSourceServer()
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	texts, statuses := newTestRetriever(t, DefaultOptions(), nil).Fetch(ctx, refs(discovery.OriginDeclared, server.URL+"/plain", server.URL+"/plain"))
	if len(texts) != 0 {
		t.Errorf("expected no texts after cancellation, got %d", len(texts))
	}

	for i, st := range statuses {
		if st.OK || st.Error == "" {
			t.Errorf("status %d should be a failure, got %+v", i, st)
		}
	}
}

func TestFetchURLReadability(t *testing.T) {
	server := newSourceServer()
	defer server.Close()

	options := DefaultOptions()
	options.Readability = true

	text, st := newTestRetriever(t, options, nil).FetchURL(context.Background(), server.URL+"/plain")
	if !st.OK || text != "plain source text" {
		t.Errorf("FetchURL = %q %+v", text, st)
	}
}

func TestClassifyError(t *testing.T) {
	testCases := []struct {
		err       error
		name      string
		retryable bool
		record    bool
	}{
		{name: "not found", err: &StatusError{StatusCode: 404}},
		{name: "server error", err: &StatusError{StatusCode: 503}, retryable: true, record: true},
		{name: "throttled", err: &StatusError{StatusCode: 429}, retryable: true, record: true},
		{name: "unsupported", err: ErrUnsupportedContent},
		{name: "too large", err: ErrBodyTooLarge},
		{name: "cancelled", err: context.Canceled},
		{name: "deadline", err: context.DeadlineExceeded, retryable: true, record: true},
		{name: "other", err: errors.New("boom"), record: true},
	}

	for _, tc := range testCases {
		got := classifyError(tc.err)
		if got != (resilience.ErrorClassification{Retryable: tc.retryable, RecordFailure: tc.record}) {
			t.Errorf("%s: got %+v", tc.name, got)
		}
	}
}

func TestHostKey(t *testing.T) {
	if got := hostKey("https://Journal.Example.org/a?b=c"); got != "journal.example.org" {
		t.Errorf("hostKey = %q", got)
	}

	if got := hostKey("::bad"); got != "invalid" {
		t.Errorf("hostKey = %q", got)
	}
}
