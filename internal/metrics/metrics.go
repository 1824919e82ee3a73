package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pricetables"

var (
	// Registry holds the service's Prometheus collectors.
	Registry = prometheus.NewRegistry()

	refreshRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "runs_total",
			Help:      "Total refresh runs by terminal state.",
		},
		[]string{"state"},
	)

	refreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "run_duration_seconds",
			Help:      "Duration of refresh runs.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
	)

	lastSuccess = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful refresh run.",
		},
	)

	fetchAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "attempts_total",
			Help:      "Provider HTTP attempts by source and outcome.",
		},
		[]string{"source", "outcome"},
	)

	fetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "request_duration_seconds",
			Help:      "Duration of single provider HTTP attempts.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		},
		[]string{"source"},
	)

	snapshotWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "writes_total",
			Help:      "Snapshot document writes by result.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		refreshRuns,
		refreshDuration,
		lastSuccess,
		fetchAttempts,
		fetchDuration,
		snapshotWrites,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordRefresh records a finished refresh run.
func RecordRefresh(state string, seconds float64, success bool, finishedUnix float64) {
	refreshRuns.WithLabelValues(state).Inc()
	refreshDuration.Observe(seconds)
	if success {
		lastSuccess.Set(finishedUnix)
	}
}

// RecordFetchAttempt records one provider HTTP attempt.
func RecordFetchAttempt(source, outcome string, seconds float64) {
	fetchAttempts.WithLabelValues(source, outcome).Inc()
	fetchDuration.WithLabelValues(source).Observe(seconds)
}

// RecordSnapshotWrite records a snapshot write result ("ok" or "error").
func RecordSnapshotWrite(result string) {
	snapshotWrites.WithLabelValues(result).Inc()
}
