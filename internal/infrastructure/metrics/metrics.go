// Package metrics exposes the Prometheus instrumentation for the provider
// integration engine. All collectors hang off one Metrics value so tests can
// use a private registry instead of the process-global default.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every collector the engine records into.
type Metrics struct {
	// WebhooksReceived counts inbound webhook calls by provider and the
	// ingestion outcome (validated, rejected, queued).
	WebhooksReceived *prometheus.CounterVec

	// WebhookProcessingSeconds observes end-to-end processing time of one
	// queued event in the coordinator.
	WebhookProcessingSeconds *prometheus.HistogramVec

	// OrdersCoordinated counts coordinator outcomes by provider and result
	// (created, advanced, noop, dead_lettered, retried).
	OrdersCoordinated *prometheus.CounterVec

	// SyncJobsFinished counts terminal sync jobs by provider and status.
	SyncJobsFinished *prometheus.CounterVec

	// SyncItemsPushed counts menu items pushed to providers.
	SyncItemsPushed *prometheus.CounterVec

	// HTTPRequestSeconds observes API latency by method, route and status.
	HTTPRequestSeconds *prometheus.HistogramVec
}

// New registers all collectors against the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		WebhooksReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "delivery",
			Name:      "webhooks_received_total",
			Help:      "Inbound webhook calls by provider and ingestion outcome.",
		}, []string{"provider", "outcome"}),

		WebhookProcessingSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "delivery",
			Name:      "webhook_processing_seconds",
			Help:      "Coordinator processing time per queued event.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),

		OrdersCoordinated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "delivery",
			Name:      "orders_coordinated_total",
			Help:      "Coordinator outcomes by provider and result.",
		}, []string{"provider", "result"}),

		SyncJobsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "delivery",
			Name:      "sync_jobs_finished_total",
			Help:      "Terminal menu sync jobs by provider and status.",
		}, []string{"provider", "status"}),

		SyncItemsPushed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "delivery",
			Name:      "sync_items_pushed_total",
			Help:      "Menu items successfully pushed to providers.",
		}, []string{"provider"}),

		HTTPRequestSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "delivery",
			Name:      "http_request_seconds",
			Help:      "API request latency by method, route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}
