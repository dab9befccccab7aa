// Package metrics holds the Prometheus metrics of the balance core.
package metrics

import (
	"time"

	"github.com/go-petr/pet-casino/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation outcomes.
const (
	OutcomeOK            = "ok"
	OutcomeBusinessError = "business_error"
	OutcomeInfraError    = "infra_error"
)

// Metrics holds balance operation metrics. A nil *Metrics records nothing.
type Metrics struct {
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	Replays           prometheus.Counter
	PublishFailures   prometheus.Counter
}

// New registers the metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "casino_balance_operations_total",
			Help: "Balance operations by outcome",
		}, []string{"op", "outcome"}),

		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "casino_balance_operation_duration_seconds",
			Help:    "Time to complete a balance operation",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"op"}),

		Replays: factory.NewCounter(prometheus.CounterOpts{
			Name: "casino_balance_idempotent_replays_total",
			Help: "Mutations answered from an earlier result of the same idempotency key",
		}),

		PublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "casino_ledger_publish_failures_total",
			Help: "Ledger events that could not be published",
		}),
	}
}

// Outcome classifies err for the outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case domain.IsBusinessError(err):
		return OutcomeBusinessError
	default:
		return OutcomeInfraError
	}
}

// Observe records an operation that started at start and finished with err.
func (m *Metrics) Observe(op string, start time.Time, err error) {
	if m == nil {
		return
	}

	m.Operations.WithLabelValues(op, Outcome(err)).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// Replayed counts an idempotent replay.
func (m *Metrics) Replayed() {
	if m == nil {
		return
	}

	m.Replays.Inc()
}

// PublishFailed counts a failed event publication.
func (m *Metrics) PublishFailed() {
	if m == nil {
		return
	}

	m.PublishFailures.Inc()
}
