package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SettlementsCommitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "noqta_settlements_committed_total",
		Help: "Invoices settled and committed, by direction.",
	}, []string{"direction"})

	SettlementsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "noqta_settlements_rejected_total",
		Help: "Settlement attempts rejected before commit, by reason.",
	}, []string{"reason"})

	InstallmentsSettled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "noqta_installments_settled_total",
		Help: "Installments marked paid.",
	})

	SettlementDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "noqta_settlement_duration_seconds",
		Help:    "Wall time of the settlement transaction.",
		Buckets: prometheus.DefBuckets,
	})
)
