// Package metrics exposes the process-wide Prometheus counters and
// histogram the solve pipeline and WAL update during operation:
//
//   - tradedesk_wal_io_errors_total{type}   — wal_io failures, never
//     blocks the caller but must be observable.
//   - tradedesk_runs_total{mode,result}     — pipeline runs by mode and
//     terminal result_status.
//   - tradedesk_phase_transitions_total{phase} — pipeline state machine
//     transitions, one series per phase name.
//   - tradedesk_mc_scenarios_total          — cumulative Monte Carlo
//     scenarios executed.
//   - tradedesk_solve_duration_seconds{mode} — solve/MC wall time.
//
// Registered in init() and intended to be served by a caller-owned HTTP
// handler — this package only registers and updates the series.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	WALIOErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradedesk_wal_io_errors_total",
			Help: "Snapshot WAL append/fsync failures by entry type.",
		},
		[]string{"type"},
	)

	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradedesk_runs_total",
			Help: "Solve pipeline runs by mode and terminal result status.",
		},
		[]string{"mode", "result"},
	)

	PhaseTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradedesk_phase_transitions_total",
			Help: "Pipeline state-machine transitions by phase name.",
		},
		[]string{"phase"},
	)

	MCScenarios = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tradedesk_mc_scenarios_total",
			Help: "Cumulative Monte Carlo scenarios executed.",
		},
	)

	SolveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tradedesk_solve_duration_seconds",
			Help:    "Wall time of a solve or Monte Carlo invocation.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)
)

func init() {
	prometheus.MustRegister(WALIOErrors, RunsTotal, PhaseTransitions, MCScenarios, SolveDuration)
}

// IncWALIOError records one wal_io failure for the given entry type.
func IncWALIOError(entryType string) { WALIOErrors.WithLabelValues(entryType).Inc() }

// ObserveRun records a terminal run outcome.
func ObserveRun(mode, result string) { RunsTotal.WithLabelValues(mode, result).Inc() }

// ObservePhase records one state-machine transition.
func ObservePhase(phase string) { PhaseTransitions.WithLabelValues(phase).Inc() }

// AddScenarios adds n completed Monte Carlo scenarios to the running total.
func AddScenarios(n int) { MCScenarios.Add(float64(n)) }

// ObserveDuration records the wall-clock seconds a solve/MC call took.
func ObserveDuration(mode string, seconds float64) {
	SolveDuration.WithLabelValues(mode).Observe(seconds)
}
