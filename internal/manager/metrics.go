package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "upscaled",
			Subsystem: "manager",
			Name:      "loads_total",
			Help:      "Model loads by outcome (ready, error, stale)",
		},
		[]string{"model", "outcome"},
	)

	loadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "upscaled",
			Subsystem: "manager",
			Name:      "load_duration_seconds",
			Help:      "Wall time of model loads in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		},
		[]string{"model"},
	)

	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "upscaled",
			Subsystem: "manager",
			Name:      "runs_total",
			Help:      "Upscale runs by outcome (ok, inference_error, encode_error, abandoned)",
		},
		[]string{"outcome"},
	)

	inferenceDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "upscaled",
			Subsystem: "manager",
			Name:      "inference_duration_seconds",
			Help:      "Engine invocation wall time in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
		},
		[]string{"model"},
	)

	staleLoadsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "upscaled",
			Subsystem: "manager",
			Name:      "stale_loads_total",
			Help:      "Loads whose result was discarded because the selection changed",
		},
	)
)

func init() {
	prometheus.MustRegister(loadsTotal, loadDuration, runsTotal, inferenceDuration, staleLoadsTotal)
}
