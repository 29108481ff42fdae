package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "leaselogic",
		Name:      "analyses_total",
		Help:      "Completed analysis runs by scope and confidence.",
	}, []string{"scope", "confidence"})

	analysisErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "leaselogic",
		Name:      "analysis_errors_total",
		Help:      "Analysis runs that ended in a hard error.",
	})

	requeryCycles = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "leaselogic",
		Name:      "requery_cycles",
		Help:      "Grade cycles spent per analysis run.",
		Buckets:   []float64{1, 2, 3, 4, 5},
	})

	analysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "leaselogic",
		Name:      "analysis_duration_seconds",
		Help:      "Wall time per analysis run.",
		Buckets:   prometheus.DefBuckets,
	})
)
