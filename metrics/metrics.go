// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics groups every collector the server records. Each instance owns its
// registry so tests can build as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	BillsSplit       prometheus.Counter
	Settlements      prometheus.Counter
	Transactions     *prometheus.CounterVec
	VersionConflicts *prometheus.CounterVec
	EmailsSent       *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		BillsSplit: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "campuspay_bills_split_total",
			Help: "Bills split across group participants.",
		}),
		Settlements: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "campuspay_settlements_total",
			Help: "Bill shares settled.",
		}),
		Transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campuspay_transactions_total",
			Help: "Transactions recorded by kind and status.",
		}, []string{"kind", "status"}),
		VersionConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campuspay_version_conflicts_total",
			Help: "Optimistic concurrency conflicts by entity.",
		}, []string{"entity"}),
		EmailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campuspay_emails_total",
			Help: "Notification emails by outcome.",
		}, []string{"outcome"}),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.BillsSplit,
		m.Settlements,
		m.Transactions,
		m.VersionConflicts,
		m.EmailsSent,
	)
	return m
}

// Conflict records a version conflict on entity. A nil receiver is a no-op.
func (m *Metrics) Conflict(entity string) {
	if m == nil {
		return
	}
	m.VersionConflicts.WithLabelValues(entity).Inc()
}

// Transaction records a committed transaction. A nil receiver is a no-op.
func (m *Metrics) Transaction(kind, status string) {
	if m == nil {
		return
	}
	m.Transactions.WithLabelValues(kind, status).Inc()
}

func (m *Metrics) BillSplit() {
	if m != nil {
		m.BillsSplit.Inc()
	}
}

func (m *Metrics) Settlement() {
	if m != nil {
		m.Settlements.Inc()
	}
}

func (m *Metrics) Email(outcome string) {
	if m != nil {
		m.EmailsSent.WithLabelValues(outcome).Inc()
	}
}
