package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the sync engine's Prometheus collectors.
type Metrics struct {
	WebhooksReceived      *prometheus.CounterVec
	SyncResults           *prometheus.CounterVec
	ReconciliationPatches prometheus.Counter
	BrandsCreated         prometheus.Counter
}

// New registers the sync collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		WebhooksReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sync_webhooks_received_total",
			Help: "Webhook deliveries received, by topic.",
		}, []string{"topic"}),
		SyncResults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sync_results_total",
			Help: "Sync outcomes, by resource, action and result.",
		}, []string{"resource", "action", "result"}),
		ReconciliationPatches: factory.NewCounter(prometheus.CounterOpts{
			Name: "sync_reconciliation_patches_total",
			Help: "Product documents patched during membership reconciliation.",
		}),
		BrandsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "sync_brands_created_total",
			Help: "Brand documents created for unmatched vendor names.",
		}),
	}
}
