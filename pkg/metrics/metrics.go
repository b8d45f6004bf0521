package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service collectors. A nil *Metrics is a valid no-op.
type Metrics struct {
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	analyses          *prometheus.CounterVec
	analysisDuration  *prometheus.HistogramVec
	extractorFailures *prometheus.CounterVec
	retrievalAttempts *prometheus.CounterVec
	creepinessScore   prometheus.Histogram
	knownPaths        map[string]bool
}

// New registers the collectors on reg under namespace. knownPaths are used
// as-is for the path label; anything else is reported as "other".
func New(namespace string, reg prometheus.Registerer, knownPaths ...string) *Metrics {
	f := promauto.With(reg)

	paths := make(map[string]bool, len(knownPaths))
	for _, p := range knownPaths {
		paths[p] = true
	}

	return &Metrics{
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, path and status.",
		}, []string{"method", "path", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		analyses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Analysis requests by source platform and outcome.",
		}, []string{"source", "outcome"}),
		analysisDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "End to end analysis latency, retrieval included.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
		extractorFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractor_failures_total",
			Help:      "Extractors that failed and degraded to an empty result.",
		}, []string{"extractor"}),
		retrievalAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_attempts_total",
			Help:      "Outbound source fetch attempts by outcome.",
		}, []string{"outcome"}),
		creepinessScore: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "creepiness_score",
			Help:      "Distribution of reported creepiness scores.",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
		knownPaths: paths,
	}
}

// ObserveAnalysis records one finished analysis. score is ignored unless the
// outcome is "success".
func (m *Metrics) ObserveAnalysis(source, outcome string, score int, d time.Duration) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(source, outcome).Inc()
	m.analysisDuration.WithLabelValues(source).Observe(d.Seconds())
	if outcome == "success" {
		m.creepinessScore.Observe(float64(score))
	}
}

// ExtractorFailed counts a degraded extractor
func (m *Metrics) ExtractorFailed(extractor string) {
	if m == nil {
		return
	}
	m.extractorFailures.WithLabelValues(extractor).Inc()
}

// RetrievalAttempt counts one outbound fetch attempt
func (m *Metrics) RetrievalAttempt(outcome string) {
	if m == nil {
		return
	}
	m.retrievalAttempts.WithLabelValues(outcome).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// HTTPMiddleware counts requests and observes their latency
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if !m.knownPaths[path] {
			path = "other"
		}
		m.httpRequests.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
