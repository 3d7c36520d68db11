// Package metrics collects per-run Prometheus metrics and writes them in the
// text exposition format for a node-exporter textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "plagcheck"

// Run holds the metrics of a single run in a private registry.
type Run struct {
	registry *prometheus.Registry

	pagesTotal      *prometheus.CounterVec
	fetchTotal      *prometheus.CounterVec
	fetchDuration   prometheus.Histogram
	searchTotal     *prometheus.CounterVec
	searchResults   prometheus.Gauge
	candidates      prometheus.Gauge
	flaggedSources  prometheus.Gauge
	aggregate       prometheus.Gauge
	runDuration     prometheus.Gauge
	lastRunUnixTime prometheus.Gauge
}

// NewRun creates and registers the run metrics.
func NewRun() *Run {
	registry := prometheus.NewRegistry()

	m := &Run{
		registry: registry,
		pagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "extract",
				Name:      "pages_total",
				Help:      "Extracted pages by method (text, ocr, empty).",
			},
			[]string{"method"},
		),
		fetchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "retrieve",
				Name:      "fetch_total",
				Help:      "Candidate fetches by outcome.",
			},
			[]string{"outcome"},
		),
		fetchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "retrieve",
				Name:      "fetch_duration_seconds",
				Help:      "Candidate fetch duration in seconds.",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
		),
		searchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "retrieve",
				Name:      "search_total",
				Help:      "Search requests by provider and status.",
			},
			[]string{"provider", "status"},
		),
		searchResults: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "retrieve",
			Name:      "search_results",
			Help:      "Result links returned by the last search.",
		}),
		candidates: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "retrieve",
			Name:      "candidates",
			Help:      "Candidate sources in the run.",
		}),
		flaggedSources: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "flagged_sources",
			Help:      "Sources scoring above the flagging threshold.",
		}),
		aggregate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "aggregate_similarity_percent",
			Help:      "Mean similarity over retrieved sources, in percent.",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the run.",
		}),
		lastRunUnixTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the run finished.",
		}),
	}

	registry.MustRegister(
		m.pagesTotal, m.fetchTotal, m.fetchDuration, m.searchTotal, m.searchResults,
		m.candidates, m.flaggedSources, m.aggregate, m.runDuration, m.lastRunUnixTime,
	)

	return m
}

// Registry returns the underlying registry.
func (m *Run) Registry() *prometheus.Registry { return m.registry }

// ObservePage counts one extracted page.
func (m *Run) ObservePage(method string) {
	m.pagesTotal.WithLabelValues(method).Inc()
}

// ObserveFetch records one candidate fetch.
func (m *Run) ObserveFetch(ok bool, d time.Duration) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}

	m.fetchTotal.WithLabelValues(outcome).Inc()
	m.fetchDuration.Observe(d.Seconds())
}

// ObserveSearch records the search step.
func (m *Run) ObserveSearch(provider string, results int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	m.searchTotal.WithLabelValues(provider, status).Inc()
	m.searchResults.Set(float64(results))
}

// ObserveCandidates records the size of the candidate list.
func (m *Run) ObserveCandidates(n int) {
	m.candidates.Set(float64(n))
}

// ObserveReport records the verdict.
func (m *Run) ObserveReport(aggregatePercent float64, flagged int) {
	m.aggregate.Set(aggregatePercent)
	m.flaggedSources.Set(float64(flagged))
}

// Finish records the run duration and completion time.
func (m *Run) Finish(d time.Duration) {
	m.runDuration.Set(d.Seconds())
	m.lastRunUnixTime.SetToCurrentTime()
}

// WriteTextfile writes all metrics to filename atomically.
func (m *Run) WriteTextfile(filename string) error {
	return prometheus.WriteToTextfile(filename, m.registry)
}
