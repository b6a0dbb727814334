package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		sweepRunsTotal,
		sweepFailuresTotal,
		sweepDuration,
	)
}

var (
	sweepRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_runs_total",
			Help: "Sweep passes by outcome (ok/skipped/error).",
		},
		[]string{"outcome"},
	)

	sweepFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_failures_total",
			Help: "Per-record sweep failures by class (expected/unexpected).",
		},
		[]string{"class"},
	)

	sweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sweep_duration_seconds",
			Help:    "Wall time of one sweep pass.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)
)

func IncSweepRun(outcome string) {
	sweepRunsTotal.WithLabelValues(norm(outcome)).Inc()
}

func AddSweepFailures(class string, count int) {
	if count <= 0 {
		return
	}
	sweepFailuresTotal.WithLabelValues(norm(class)).Add(float64(count))
}

func ObserveSweepDuration(d time.Duration) {
	sweepDuration.Observe(d.Seconds())
}
