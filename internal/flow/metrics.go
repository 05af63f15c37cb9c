package flow

import "github.com/prometheus/client_golang/prometheus"

// Branch outcomes reported by races.
const (
	outcomeWon      = "won"
	outcomeFinished = "finished"
	outcomeFailed   = "failed"
	outcomeStopped  = "stopped"
)

var (
	raceBranchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hades_race_branches_total",
			Help: "Racing branch completions by outcome.",
		},
		[]string{"outcome"},
	)

	foldFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hades_fold_failures_total",
			Help: "Folds that found no usable candidate.",
		},
	)

	loopIterationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hades_loop_iterations_total",
			Help: "Total loop iterations executed.",
		},
	)
)

func init() {
	prometheus.MustRegister(raceBranchesTotal)
	prometheus.MustRegister(foldFailuresTotal)
	prometheus.MustRegister(loopIterationsTotal)
}
