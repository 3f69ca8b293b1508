// Package metrics holds the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all custom Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Submission metrics
	ResponsesRecorded *prometheus.CounterVec

	// Snapshot metrics
	SnapshotWrites  *prometheus.CounterVec
	SnapshotLatency prometheus.Histogram

	// Analysis metrics
	AnalysisRequests *prometheus.CounterVec
	AnalysisLatency  *prometheus.HistogramVec

	// Upstream collaborator failures
	UpstreamErrors *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. liveMeetings reports the number of
// meetings held in memory and may be nil.
func New(reg prometheus.Registerer, gatherer prometheus.Gatherer, liveMeetings func() float64) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		gatherer: gatherer,

		ResponsesRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "focus_group_responses_recorded_total",
			Help: "Total number of answers recorded by source",
		}, []string{"source"}), // source: "text" or "voice"

		SnapshotWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "focus_group_snapshot_writes_total",
			Help: "Total number of snapshot writes by result",
		}, []string{"result"}),

		SnapshotLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "focus_group_snapshot_duration_seconds",
			Help:    "Duration of one meeting snapshot write in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),

		AnalysisRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "focus_group_analysis_requests_total",
			Help: "Total number of analysis requests by kind and result",
		}, []string{"kind", "result"}),

		AnalysisLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "focus_group_analysis_duration_seconds",
			Help:    "Analysis latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}, // model calls can take minutes
		}, []string{"kind"}),

		UpstreamErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "focus_group_upstream_errors_total",
			Help: "Total number of collaborator failures by collaborator",
		}, []string{"collaborator"}),
	}

	if liveMeetings != nil {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "focus_group_meetings_live",
			Help: "Number of meetings held in memory",
		}, liveMeetings)
	}

	return m
}

// RecordResponse counts one recorded answer
func (m *Metrics) RecordResponse(source string) {
	if m == nil {
		return
	}
	m.ResponsesRecorded.WithLabelValues(source).Inc()
}

// ObserveSnapshot records one snapshot write
func (m *Metrics) ObserveSnapshot(start time.Time, err error) {
	if m == nil {
		return
	}
	m.SnapshotWrites.WithLabelValues(result(err)).Inc()
	m.SnapshotLatency.Observe(time.Since(start).Seconds())
}

// ObserveAnalysis records one analysis request
func (m *Metrics) ObserveAnalysis(kind string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.AnalysisRequests.WithLabelValues(kind, result(err)).Inc()
	m.AnalysisLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// UpstreamError counts one collaborator failure
func (m *Metrics) UpstreamError(collaborator string) {
	if m == nil {
		return
	}
	m.UpstreamErrors.WithLabelValues(collaborator).Inc()
}

// Handler serves the registered metrics
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
