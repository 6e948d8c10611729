// Package metrics holds the Prometheus collectors for the service. Every
// method is safe on a nil *Metrics, so callers that do not export metrics
// pass nil.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for analysis, scoring and transport.
type Metrics struct {
	// Analyses by input format and outcome
	Analyses *prometheus.CounterVec

	// Analysis latency by input format
	AnalysisLatency *prometheus.HistogramVec

	// Recognised features by kind
	Features *prometheus.CounterVec

	// Measured minimum wall thickness
	MinWall prometheus.Histogram

	// Scores by grade
	Grades *prometheus.CounterVec

	// Analysis cache lookups by result
	CacheLookups *prometheus.CounterVec

	// HTTP requests by route, method and status
	Requests *prometheus.CounterVec

	// HTTP latency by route
	RequestLatency *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Analyses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dfm_analyses_total",
			Help: "Total part analyses by format and status",
		}, []string{"format", "status"}), // status: "complete", "partial", "rejected", "failed"

		AnalysisLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dfm_analysis_duration_seconds",
			Help:    "Duration of a full part analysis",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"format"}),

		Features: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dfm_features_detected_total",
			Help: "Total recognised features by kind",
		}, []string{"kind"}), // kind: "through_hole", "blind_hole", "pocket"

		MinWall: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "dfm_min_wall_thickness_mm",
			Help:    "Measured minimum wall thickness of analyzed parts",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}),

		Grades: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dfm_scores_total",
			Help: "Total manufacturability scores by grade",
		}, []string{"grade"}),

		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dfm_analysis_cache_lookups_total",
			Help: "Analysis cache lookups by result",
		}, []string{"result"}), // result: "hit", "miss"

		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dfm_http_requests_total",
			Help: "Total HTTP requests by route, method and status code",
		}, []string{"route", "method", "code"}),

		RequestLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dfm_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}, []string{"route"}),
	}
}

// ObserveAnalysis records one analysis outcome and its duration.
func (m *Metrics) ObserveAnalysis(format, status string, d time.Duration) {
	if m != nil {
		m.Analyses.WithLabelValues(format, status).Inc()
		m.AnalysisLatency.WithLabelValues(format).Observe(d.Seconds())
	}
}

// AddFeatures counts n recognised features of kind.
func (m *Metrics) AddFeatures(kind string, n int) {
	if m != nil && n > 0 {
		m.Features.WithLabelValues(kind).Add(float64(n))
	}
}

// ObserveMinWall records a measured minimum wall. Zero means nothing was
// measured and is skipped.
func (m *Metrics) ObserveMinWall(mm float64) {
	if m != nil && mm > 0 {
		m.MinWall.Observe(mm)
	}
}

// IncrementGrade records a scoring result.
func (m *Metrics) IncrementGrade(grade string) {
	if m != nil {
		m.Grades.WithLabelValues(grade).Inc()
	}
}

// CacheHit records an analysis cache hit.
func (m *Metrics) CacheHit() {
	if m != nil {
		m.CacheLookups.WithLabelValues("hit").Inc()
	}
}

// CacheMiss records an analysis cache miss.
func (m *Metrics) CacheMiss() {
	if m != nil {
		m.CacheLookups.WithLabelValues("miss").Inc()
	}
}

// ObserveRequest records a served HTTP request.
func (m *Metrics) ObserveRequest(route, method string, code int, d time.Duration) {
	if m != nil {
		m.Requests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
		m.RequestLatency.WithLabelValues(route).Observe(d.Seconds())
	}
}
