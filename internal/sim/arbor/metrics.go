package arbor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	traversals = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "arbor",
		Name:      "traversals_total",
		Help:      "Network traversals started by the engine",
	})

	traversalOverflows = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "arbor",
		Name:      "traversal_overflow_total",
		Help:      "Traversals that hit the depth ceiling and broke a node",
	})

	// Labels: outcome (skipped, supported, sprouted, collapsed)
	rotChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arbor",
		Name:      "rot_checks_total",
		Help:      "Support checks by outcome",
	}, []string{"outcome"})

	// Labels: result (success, failed)
	growSignals = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arbor",
		Name:      "grow_signals_total",
		Help:      "Growth signals by result",
	}, []string{"result"})

	// Labels: mode (partial, full)
	fellVolume = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "arbor",
		Name:      "fell_volume",
		Help:      "Wood volume harvested per fell",
		Buckets:   prometheus.ExponentialBuckets(64, 2, 10),
	}, []string{"mode"})
)
