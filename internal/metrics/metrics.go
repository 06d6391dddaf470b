package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BillingMetrics holds the Prometheus metrics for the reconciliation engine.
type BillingMetrics struct {
	WebhookEventsTotal *prometheus.CounterVec
	GateDecisionsTotal *prometheus.CounterVec
	UsageIncrements    *prometheus.CounterVec
}

// NewBillingMetrics initializes and registers the metrics against the given
// registerer. Tests pass a fresh registry to avoid duplicate registration.
func NewBillingMetrics(reg prometheus.Registerer) *BillingMetrics {
	factory := promauto.With(reg)
	return &BillingMetrics{
		WebhookEventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reportloop",
			Subsystem: "webhook",
			Name:      "events_total",
			Help:      "Total number of inbound webhook deliveries by outcome.",
		}, []string{"outcome"}), // outcome: processed, duplicate, rejected, ignored, handler_error
		GateDecisionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reportloop",
			Subsystem: "entitlement",
			Name:      "gate_decisions_total",
			Help:      "Total number of entitlement gate decisions by outcome.",
		}, []string{"outcome"}), // outcome: allowed, denied, failed_open, failed_closed
		UsageIncrements: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reportloop",
			Subsystem: "usage",
			Name:      "increments_total",
			Help:      "Total number of usage counter increments by counter name.",
		}, []string{"counter"}),
	}
}
