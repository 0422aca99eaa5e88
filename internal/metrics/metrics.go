package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// runsTotal counts finished runs.
	// Labels: kind, status (completed, failed, timed_out, retried)
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arbiter",
		Subsystem: "runs",
		Name:      "total",
		Help:      "Analysis runs by kind and outcome",
	}, []string{"kind", "status"})

	// runDuration measures execution time of a run, queue wait excluded.
	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "arbiter",
		Subsystem: "runs",
		Name:      "duration_seconds",
		Help:      "Analysis run execution time in seconds",
		Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"kind"})

	runsPending = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "arbiter",
		Subsystem: "runs",
		Name:      "pending",
		Help:      "Runs waiting for the runner at the last tick",
	})

	// analysesTotal counts synchronous engine calls made through the API.
	// Labels: operation (ranking, what_if, scenarios, sensitivity, monte_carlo, risk, ahp, aggregate, suite)
	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arbiter",
		Subsystem: "analysis",
		Name:      "requests_total",
		Help:      "Synchronous analysis requests by operation",
	}, []string{"operation"})

	monteCarloIterations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "arbiter",
		Subsystem: "monte_carlo",
		Name:      "iterations_total",
		Help:      "Monte Carlo draws simulated",
	})

	// monteCarloConfidence tracks the share of draws won by the best alternative.
	monteCarloConfidence = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "arbiter",
		Subsystem: "monte_carlo",
		Name:      "confidence",
		Help:      "Distribution of Monte Carlo confidence in the best alternative",
		Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1.0},
	})

	// inconsistentMatrices counts pairwise matrices above the CR threshold.
	inconsistentMatrices = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "arbiter",
		Subsystem: "ahp",
		Name:      "inconsistent_matrices_total",
		Help:      "Comparison matrices whose consistency ratio exceeded the threshold",
	})
)

// RecordRun records a finished run attempt.
func RecordRun(kind, status string, elapsed time.Duration) {
	runsTotal.WithLabelValues(kind, status).Inc()
	if elapsed > 0 {
		runDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	}
}

// SetPending records the pending queue depth.
func SetPending(n int) {
	runsPending.Set(float64(n))
}

// RecordAnalysis counts one synchronous analysis request.
func RecordAnalysis(operation string) {
	analysesTotal.WithLabelValues(operation).Inc()
}

// RecordMonteCarlo records the size and outcome of a simulation.
func RecordMonteCarlo(iterations int, confidence float64) {
	monteCarloIterations.Add(float64(iterations))
	monteCarloConfidence.Observe(confidence)
}

// RecordInconsistent counts matrices flagged as inconsistent.
func RecordInconsistent(n int) {
	if n > 0 {
		inconsistentMatrices.Add(float64(n))
	}
}
