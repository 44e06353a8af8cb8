package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for the webhook ingestion path and provider sync.
var (
	WebhooksReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhooks_received_total",
			Help: "Total number of provider webhooks received, by event type",
		},
		[]string{"event_type"},
	)

	WebhooksProcessedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webhooks_processed_total",
			Help: "Total number of webhooks routed to a handler and processed",
		},
	)

	WebhooksUnhandledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webhooks_unhandled_total",
			Help: "Total number of webhooks with an unrecognized event type",
		},
	)

	WebhooksFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webhooks_failed_total",
			Help: "Total number of webhooks that failed processing",
		},
	)

	WebhookProcessingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "webhook_processing_duration_seconds",
			Help:    "Duration of webhook event processing",
			Buckets: prometheus.DefBuckets,
		},
	)

	ProviderSyncTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_sync_total",
			Help: "Total number of workspace sync runs, by outcome",
		},
		[]string{"outcome"},
	)
)

// Register registers all metrics with the default registry.
func Register() {
	prometheus.MustRegister(WebhooksReceivedTotal)
	prometheus.MustRegister(WebhooksProcessedTotal)
	prometheus.MustRegister(WebhooksUnhandledTotal)
	prometheus.MustRegister(WebhooksFailedTotal)
	prometheus.MustRegister(WebhookProcessingDuration)
	prometheus.MustRegister(ProviderSyncTotal)
}
