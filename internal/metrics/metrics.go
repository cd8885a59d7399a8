// Package metrics defines the Prometheus instruments for the split and
// settlement engine, exposed at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "splitledger_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "splitledger_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ExpensesCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "splitledger_expenses_created_total",
			Help: "Total number of expenses persisted, by split type",
		},
		[]string{"split_type"},
	)

	SplitRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "splitledger_split_rejections_total",
			Help: "Total number of expense requests rejected before commit",
		},
	)

	PaymentIntentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "splitledger_payment_intents_total",
			Help: "Total number of payment intent creations, by outcome (created, reused, provider_error)",
		},
		[]string{"outcome"},
	)

	SettlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "splitledger_settlements_total",
			Help: "Total number of intent settlements, by result (succeeded, failed, replayed)",
		},
		[]string{"result"},
	)

	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "splitledger_webhook_events_total",
			Help: "Total number of provider webhook events received, by type",
		},
		[]string{"type"},
	)

	BalanceAppliedCentsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "splitledger_balance_applied_cents_total",
			Help: "Total settled cents applied to user balances",
		},
	)
)
