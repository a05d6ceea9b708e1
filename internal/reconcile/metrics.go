package reconcile

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// reconcileTotal counts reconciliations by strategy and outcome
	reconcileTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linkctl_reconcile_total",
		Help: "Total link reconciliations by strategy and outcome",
	}, []string{"strategy", "outcome"})

	// reconcileDuration tracks how long a reconciliation takes, build waits included
	reconcileDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "linkctl_reconcile_duration_seconds",
		Help:    "Link reconciliation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 10), // 10ms to ~44min
	}, []string{"strategy"})

	decisionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linkctl_reconcile_decisions_total",
		Help: "Convergence decisions taken on the generic path",
	}, []string{"decision"})

	buildWaitTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linkctl_reconcile_build_waits_total",
		Help: "Times a reconciliation waited for a running build",
	})
)
