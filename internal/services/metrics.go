package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// webhookEvents counts classified webhook events by result
	// (start|continuation|none|classification_error).
	webhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Total webhook events by classification result.",
		},
		[]string{"result"},
	)

	// orderOutcomes counts submission outcomes
	// (opened|duplicate|failed|unmatched).
	orderOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "service_orders_total",
			Help: "Total service-order submission outcomes.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(webhookEvents, orderOutcomes)
}
