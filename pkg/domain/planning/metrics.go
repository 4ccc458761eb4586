package planning

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	editsRecordedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chronoplan_edits_recorded_total",
		Help: "Total number of plan edits recorded, by kind",
	}, []string{"kind"})

	commitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chronoplan_commits_total",
		Help: "Total number of non-empty commits",
	})

	rollbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chronoplan_rollbacks_total",
		Help: "Total number of non-empty rollbacks",
	})

	resultsInvalidatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chronoplan_results_invalidated_total",
		Help: "Number of simulation results marked stale by plan edits",
	})

	resultsRegisteredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chronoplan_results_registered_total",
		Help: "Simulation results handed out, by staleness at hand-out",
	}, []string{"stale"})
)
