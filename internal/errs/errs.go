// Package errs defines the closed error-kind taxonomy of the solve
// pipeline. Each kind is a sentinel wrapped with context via fmt.Errorf
// and %w, so callers discriminate with errors.Is rather than string
// matching.
package errs

import "errors"

var (
	// ErrBadInput marks a malformed descriptor, a length mismatch, or an
	// out-of-range variable index.
	ErrBadInput = errors.New("bad_input")
	// ErrInfeasible marks an LP proved infeasible by the solver.
	ErrInfeasible = errors.New("infeasible")
	// ErrSolverError marks an unclassified solver outcome.
	ErrSolverError = errors.New("solver_error")
	// ErrExternalUnreachable marks a failed or timed-out contract
	// freshness / ingest / framing call.
	ErrExternalUnreachable = errors.New("external_unreachable")
	// ErrStaleData marks a freshness check that could not confirm
	// currency; the run continues with the condition recorded.
	ErrStaleData = errors.New("stale_data")
	// ErrWALIO marks a disk write/fsync failure in the snapshot log.
	ErrWALIO = errors.New("wal_io")
	// ErrCancelled marks a terminal state recorded when a run is
	// cancelled.
	ErrCancelled = errors.New("cancelled")
)
