// Package metrics provides Prometheus metrics for the merge and graph engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics contains Prometheus metrics for duplicate scans, merges and
// post-merge image cleanup. A nil *EngineMetrics records nothing.
type EngineMetrics struct {
	registry *prometheus.Registry

	mergesTotal          *prometheus.CounterVec
	mergeAttemptsTotal   *prometheus.CounterVec
	mergeDurationSeconds prometheus.Histogram
	suggestionsTotal     *prometheus.CounterVec
	imageCleanupTotal    *prometheus.CounterVec
}

// NewEngineMetrics creates and registers engine metrics
func NewEngineMetrics(registry *prometheus.Registry) (*EngineMetrics, error) {
	m := &EngineMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *EngineMetrics) initMetrics() {
	m.mergesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peoplegraph_merges_total",
			Help: "Total number of merge requests by final result",
		},
		[]string{"result"}, // committed, not_found, invalid, validation, conflict, error
	)

	m.mergeAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peoplegraph_merge_attempts_total",
			Help: "Total number of merge transaction attempts by outcome",
		},
		[]string{"outcome"}, // committed, conflict, failed
	)

	m.mergeDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "peoplegraph_merge_duration_seconds",
			Help:    "Time taken by merge requests including retries",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
	)

	m.suggestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peoplegraph_duplicate_suggestions_total",
			Help: "Total number of duplicate suggestions produced by confidence",
		},
		[]string{"confidence"},
	)

	m.imageCleanupTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peoplegraph_image_cleanup_total",
			Help: "Total number of post-merge image deletions by status",
		},
		[]string{"status"}, // deleted, failed, dropped
	)
}

// Describe implements prometheus.Collector
func (m *EngineMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.mergesTotal.Describe(ch)
	m.mergeAttemptsTotal.Describe(ch)
	m.mergeDurationSeconds.Describe(ch)
	m.suggestionsTotal.Describe(ch)
	m.imageCleanupTotal.Describe(ch)
}

// Collect implements prometheus.Collector
func (m *EngineMetrics) Collect(ch chan<- prometheus.Metric) {
	m.mergesTotal.Collect(ch)
	m.mergeAttemptsTotal.Collect(ch)
	m.mergeDurationSeconds.Collect(ch)
	m.suggestionsTotal.Collect(ch)
	m.imageCleanupTotal.Collect(ch)
}

// RecordMerge records the final result of a merge request and its duration
func (m *EngineMetrics) RecordMerge(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.mergesTotal.WithLabelValues(result).Inc()
	m.mergeDurationSeconds.Observe(duration.Seconds())
}

// RecordMergeAttempt records one transaction attempt
func (m *EngineMetrics) RecordMergeAttempt(outcome string) {
	if m == nil {
		return
	}
	m.mergeAttemptsTotal.WithLabelValues(outcome).Inc()
}

// RecordSuggestions adds count suggestions of the given confidence
func (m *EngineMetrics) RecordSuggestions(confidence string, count int) {
	if m == nil || count == 0 {
		return
	}
	m.suggestionsTotal.WithLabelValues(confidence).Add(float64(count))
}

// RecordImageCleanup records one image cleanup outcome
func (m *EngineMetrics) RecordImageCleanup(status string) {
	if m == nil {
		return
	}
	m.imageCleanupTotal.WithLabelValues(status).Inc()
}
