package engine

import "github.com/prometheus/client_golang/prometheus"

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hades_runs_total",
			Help: "Finished runs by final status.",
		},
		[]string{"status"},
	)

	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hades_run_duration_seconds",
			Help:    "Run wall-clock duration in seconds, from start to finish.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 9),
		},
		[]string{"status"},
	)

	activeRuns = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hades_active_runs",
			Help: "Runs currently holding an execution slot.",
		},
	)

	queuedRuns = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hades_queued_runs",
			Help: "Runs waiting for an execution slot.",
		},
	)
)

func init() {
	prometheus.MustRegister(runsTotal)
	prometheus.MustRegister(runDuration)
	prometheus.MustRegister(activeRuns)
	prometheus.MustRegister(queuedRuns)
}
