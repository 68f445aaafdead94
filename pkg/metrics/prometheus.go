package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Allocation outcomes.
const (
	OutcomeCovered   = "covered"
	OutcomeShortfall = "shortfall"
	OutcomeFailed    = "failed"
)

// Recorder exposes decision engine activity as Prometheus metrics.
type Recorder struct {
	signals         *prometheus.CounterVec
	missingData     *prometheus.CounterVec
	publishFailures prometheus.Counter
	allocations     *prometheus.CounterVec
	shortfall       *prometheus.CounterVec
	streamDrops     *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New creates a recorder and registers its collectors on reg.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		signals: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "decision_signals_generated_total",
				Help: "Total number of stored signals by state",
			},
			[]string{"state"},
		),
		missingData: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "decision_missing_data_total",
				Help: "Total number of missing indicator inputs",
			},
			[]string{"kind"},
		),
		publishFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "decision_signal_publish_failures_total",
				Help: "Total number of signal events that could not be published",
			},
		),
		allocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "decision_tax_loss_allocations_total",
				Help: "Total number of tax loss allocations by outcome",
			},
			[]string{"tax_category", "outcome"},
		),
		shortfall: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "decision_tax_loss_shortfall_amount_total",
				Help: "Sum of gains left uncovered by available losses",
			},
			[]string{"tax_category"},
		),
		streamDrops: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "decision_stream_events_dropped_total",
				Help: "Total number of stream events dropped without being applied",
			},
			[]string{"stream"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "decision_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "decision_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "decision_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"route", "method"},
		),
	}
}

// RecordSignal counts a stored signal.
func (r *Recorder) RecordSignal(state string) {
	r.signals.WithLabelValues(state).Inc()
}

// RecordMissingData counts a missing input, e.g. "sma200" or "snapshot".
func (r *Recorder) RecordMissingData(kind string) {
	r.missingData.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordPublishFailure() {
	r.publishFailures.Inc()
}

// RecordAllocation counts an allocation and, for shortfalls, adds the uncovered amount.
func (r *Recorder) RecordAllocation(category, outcome string, shortfall float64) {
	r.allocations.WithLabelValues(category, outcome).Inc()
	if outcome == OutcomeShortfall && shortfall > 0 {
		r.shortfall.WithLabelValues(category).Add(shortfall)
	}
}

func (r *Recorder) RecordDrop(stream string) {
	r.streamDrops.WithLabelValues(stream).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordHTTPRequest records one served request. route should be the templated path.
func (r *Recorder) RecordHTTPRequest(route, method string, status int, seconds float64) {
	r.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(route, method).Observe(seconds)
}
