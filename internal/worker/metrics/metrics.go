package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "xe_rate_worker"

// WorkerMetrics holds the worker's Prometheus collectors
type WorkerMetrics struct {
	JobsReservedTotal *prometheus.CounterVec
	CyclesTotal       *prometheus.CounterVec
	ActionsTotal      *prometheus.CounterVec
	QueueErrorsTotal  *prometheus.CounterVec
	CycleDuration     *prometheus.HistogramVec
	RatesSavedTotal   prometheus.Counter
	ActiveWorkers     prometheus.Gauge
}

// NewWorkerMetrics registers the worker metrics on reg.
// A nil reg uses the default registerer.
func NewWorkerMetrics(reg prometheus.Registerer) *WorkerMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &WorkerMetrics{
		JobsReservedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_reserved_total",
				Help:      "Jobs reserved from the queue",
			},
			[]string{"worker"},
		),

		// outcome is success or failure; stage is the stage that failed, or complete
		CyclesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycles_total",
				Help:      "Processing cycles by outcome and stage",
			},
			[]string{"outcome", "stage"},
		),

		ActionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lifecycle_actions_total",
				Help:      "Lifecycle decisions applied to jobs",
			},
			[]string{"action"},
		),

		QueueErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queue_errors_total",
				Help:      "Failed queue operations",
			},
			[]string{"operation"},
		),

		CycleDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cycle_duration_seconds",
				Help:      "Time from reservation to the end of the lifecycle step",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"outcome"},
		),

		RatesSavedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rates_saved_total",
				Help:      "Rate samples written to the store",
			},
		),

		ActiveWorkers: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_workers",
				Help:      "Worker loops currently running",
			},
		),
	}
}

// RecordReserved counts a reserved job
func (m *WorkerMetrics) RecordReserved(worker string) {
	m.JobsReservedTotal.WithLabelValues(worker).Inc()
}

// RecordCycle counts one finished cycle and observes its duration
func (m *WorkerMetrics) RecordCycle(outcome, stage string, duration time.Duration) {
	m.CyclesTotal.WithLabelValues(outcome, stage).Inc()
	m.CycleDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordAction counts an applied lifecycle action
func (m *WorkerMetrics) RecordAction(action string) {
	m.ActionsTotal.WithLabelValues(action).Inc()
}

// RecordQueueError counts a failed queue operation
func (m *WorkerMetrics) RecordQueueError(operation string) {
	m.QueueErrorsTotal.WithLabelValues(operation).Inc()
}

// RecordRateSaved counts a stored sample
func (m *WorkerMetrics) RecordRateSaved() {
	m.RatesSavedTotal.Inc()
}

// WorkerStarted increments the active worker gauge
func (m *WorkerMetrics) WorkerStarted() {
	m.ActiveWorkers.Inc()
}

// WorkerStopped decrements the active worker gauge
func (m *WorkerMetrics) WorkerStopped() {
	m.ActiveWorkers.Dec()
}
