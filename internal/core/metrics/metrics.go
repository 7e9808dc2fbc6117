package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics for the fulfillment workflow
var (
	WebhooksReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fulfillment_webhooks_received_total",
			Help: "Total number of order webhooks received",
		},
		[]string{"source"},
	)

	WebhooksDuplicateTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fulfillment_webhooks_duplicate_total",
			Help: "Total number of order webhooks dropped as duplicate deliveries",
		},
		[]string{"source"},
	)

	ItemOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fulfillment_item_outcomes_total",
			Help: "Line item outcomes by terminal state and failure reason",
		},
		[]string{"state", "reason"},
	)

	PollAttemptsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fulfillment_poll_attempts_total",
			Help: "Total number of order details polls sent to the provider",
		},
	)

	CommitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fulfillment_commits_total",
			Help: "Order note commits by result (written, skipped, failed)",
		},
		[]string{"result"},
	)

	WorkflowDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fulfillment_workflow_duration_seconds",
			Help:    "Duration of one order event workflow run",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fulfillment_notifications_total",
			Help: "WhatsApp status notifications by result",
		},
		[]string{"result"},
	)
)

var registerOnce sync.Once

// Register registers all Prometheus metrics with the default registry.
// Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(WebhooksReceivedTotal)
		prometheus.MustRegister(WebhooksDuplicateTotal)
		prometheus.MustRegister(ItemOutcomesTotal)
		prometheus.MustRegister(PollAttemptsTotal)
		prometheus.MustRegister(CommitsTotal)
		prometheus.MustRegister(WorkflowDuration)
		prometheus.MustRegister(NotificationsTotal)
	})
}
