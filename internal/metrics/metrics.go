package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors for one pipeline run
type Metrics struct {
	registry          *prometheus.Registry
	items             *prometheus.CounterVec
	fetchDuration     prometheus.Histogram
	summarizeDuration prometheus.Histogram
	fallbacks         *prometheus.CounterVec
	retries           prometheus.Counter
	lastRun           *prometheus.GaugeVec
}

// New creates a Metrics with its own registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.items = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventscout",
		Name:      "items_total",
		Help:      "Events that finished a pipeline stage, by final state",
	}, []string{"stage", "state"})
	m.fetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "eventscout",
		Name:      "fetch_duration_seconds",
		Help:      "Time spent fetching and extracting one event page",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 8),
	})
	m.summarizeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "eventscout",
		Name:      "summarize_duration_seconds",
		Help:      "Time spent waiting for one summarization response",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 8),
	})
	m.fallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventscout",
		Name:      "summary_fallbacks_total",
		Help:      "Summaries replaced by the empty default, by reason",
	}, []string{"reason"})
	m.retries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "eventscout",
		Name:      "summarize_retries_total",
		Help:      "Summarization requests retried after a rate-limit or server error",
	})
	m.lastRun = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "eventscout",
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix timestamp of the last completed run",
	}, []string{"run_id"})

	m.registry.MustRegister(
		m.items, m.fetchDuration, m.summarizeDuration,
		m.fallbacks, m.retries, m.lastRun,
	)

	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ItemDone counts an item leaving stage in state
func (m *Metrics) ItemDone(stage, state string) {
	if m == nil {
		return
	}
	m.items.WithLabelValues(stage, state).Inc()
}

// ObserveFetch records the duration of one page fetch
func (m *Metrics) ObserveFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.fetchDuration.Observe(d.Seconds())
}

// ObserveSummarize records the duration of one summarization call
func (m *Metrics) ObserveSummarize(d time.Duration) {
	if m == nil {
		return
	}
	m.summarizeDuration.Observe(d.Seconds())
}

// SummaryFallback counts a summary replaced by the empty default
func (m *Metrics) SummaryFallback(reason string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(reason).Inc()
}

// SummarizeRetry counts one retried summarization request
func (m *Metrics) SummarizeRetry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

// RunFinished stamps the completion time of run runID
func (m *Metrics) RunFinished(runID string, at time.Time) {
	if m == nil {
		return
	}
	m.lastRun.Reset()
	m.lastRun.WithLabelValues(runID).Set(float64(at.Unix()))
}

// WriteTextfile writes all metrics in the text exposition format
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
