package pipeline

import (
	"time"

	"github.com/aluiziolira/go-inventory-bridge/models"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the ingestion pipeline.
type Metrics struct {
	Registry         *prometheus.Registry
	FilesTotal       *prometheus.CounterVec
	AttemptsTotal    *prometheus.CounterVec
	DeliveryDuration prometheus.Histogram
	RowsTotal        *prometheus.CounterVec
	RetriesTotal     prometheus.Counter
	ErrorsTotal      *prometheus.CounterVec
	HeartbeatsTotal  *prometheus.CounterVec
	JobsInFlight     prometheus.Gauge
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	files := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_files_total",
			Help: "Inbound files by terminal state.",
		},
		[]string{"state"},
	)
	attempts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_delivery_attempts_total",
			Help: "Delivery attempts by outcome.",
		},
		[]string{"outcome"},
	)
	duration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bridge_delivery_duration_seconds",
			Help:    "Latency of delivery attempts.",
			Buckets: prometheus.DefBuckets,
		},
	)
	rows := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_rows_total",
			Help: "Parsed data rows by kind (accepted or skipped).",
		},
		[]string{"kind"},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bridge_retries_total",
			Help: "Total number of delivery retries scheduled.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_errors_total",
			Help: "Delivery and file handling errors by type.",
		},
		[]string{"error_type"},
	)
	heartbeats := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_heartbeats_total",
			Help: "Heartbeats sent by result.",
		},
		[]string{"result"},
	)
	inFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bridge_jobs_in_flight",
			Help: "Files currently being processed.",
		},
	)

	registry.MustRegister(files, attempts, duration, rows, retries, errorsTotal, heartbeats, inFlight)

	return &Metrics{
		Registry:         registry,
		FilesTotal:       files,
		AttemptsTotal:    attempts,
		DeliveryDuration: duration,
		RowsTotal:        rows,
		RetriesTotal:     retries,
		ErrorsTotal:      errorsTotal,
		HeartbeatsTotal:  heartbeats,
		JobsInFlight:     inFlight,
	}
}

// IncFile counts a file that reached a terminal state.
func (m *Metrics) IncFile(state models.FileState) {
	if m == nil {
		return
	}
	m.FilesTotal.WithLabelValues(string(state)).Inc()
}

// ObserveAttempt records one delivery attempt.
func (m *Metrics) ObserveAttempt(outcome models.Outcome, d time.Duration) {
	if m == nil {
		return
	}
	m.AttemptsTotal.WithLabelValues(string(outcome)).Inc()
	m.DeliveryDuration.Observe(d.Seconds())
}

// AddRows counts accepted and skipped rows of a parsed file.
func (m *Metrics) AddRows(accepted, skipped int) {
	if m == nil {
		return
	}
	m.RowsTotal.WithLabelValues("accepted").Add(float64(accepted))
	m.RowsTotal.WithLabelValues("skipped").Add(float64(skipped))
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncHeartbeat counts a heartbeat by result ("ok" or "error").
func (m *Metrics) IncHeartbeat(result string) {
	if m == nil {
		return
	}
	m.HeartbeatsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) jobStarted() {
	if m == nil {
		return
	}
	m.JobsInFlight.Inc()
}

func (m *Metrics) jobFinished() {
	if m == nil {
		return
	}
	m.JobsInFlight.Dec()
}
