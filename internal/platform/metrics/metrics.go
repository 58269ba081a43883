// Package metrics holds the prometheus collectors of both binaries.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Rejection reasons
const (
	ReasonInvalidAmount = "invalid_amount"
	ReasonOverpayment   = "overpayment"
	ReasonNotFound      = "not_found"
	ReasonForbidden     = "forbidden"
	ReasonValidation    = "validation"
	ReasonError         = "error"
)

// Outbox poller results
const (
	OutboxResultPublished = "published"
	OutboxResultRetry     = "retry"
	OutboxResultFailed    = "failed"
)

// Projection results
const (
	ProjectionApplied = "applied"
	ProjectionStale   = "stale"
	ProjectionFailed  = "failed"
)

type Metrics struct {
	registry *prometheus.Registry

	PaymentsApplied  *prometheus.CounterVec
	PaymentsRejected *prometheus.CounterVec
	CollectedAmount  prometheus.Counter
	HTTPDuration     *prometheus.HistogramVec
	OutboxPublished  *prometheus.CounterVec
	Projections      *prometheus.CounterVec
}

// New registers every collector on a fresh registry under namespace
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		PaymentsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_applied_total",
			Help:      "Payments recorded against bills of lading.",
		}, []string{"payment_type"}),
		PaymentsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_rejected_total",
			Help:      "Payments refused before anything was written.",
		}, []string{"reason"}),
		CollectedAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collected_amount_total",
			Help:      "Sum of collected payment amounts.",
		}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		OutboxPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_messages_total",
			Help:      "Outbox messages handled by the poller.",
		}, []string{"status"}),
		Projections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "statement_projections_total",
			Help:      "Statement snapshot projections by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.PaymentsApplied,
		m.PaymentsRejected,
		m.CollectedAmount,
		m.HTTPDuration,
		m.OutboxPublished,
		m.Projections,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) PaymentApplied(paymentType string, amount decimal.Decimal) {
	m.PaymentsApplied.WithLabelValues(paymentType).Inc()
	m.CollectedAmount.Add(amount.InexactFloat64())
}

func (m *Metrics) PaymentRejected(reason string) {
	m.PaymentsRejected.WithLabelValues(reason).Inc()
}
