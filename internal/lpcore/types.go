// Package lpcore builds and solves the per-run linear program described
// by a descriptor.ModelDescriptor and a variable vector, under one of
// five objective modes, and extracts the aggregates and per-route
// detail the Monte Carlo Runner and Solve Pipeline consume.
package lpcore

// Status is the LP Core's own result tag. It is never returned as an
// error for optimal/infeasible/solver_error — those are data, carried
// on Result.Status, per the propagation policy that keeps LP outcomes
// out of the error path. Only bad_input (a malformed descriptor) comes
// back as a Go error.
type Status string

const (
	StatusOptimal     Status = "optimal"
	StatusInfeasible  Status = "infeasible"
	StatusSolverError Status = "solver_error"
)

// Result is the LP Core's complete output for one solve. Margins are
// always populated; every other aggregate is zero-filled when Status
// is not optimal.
type Result struct {
	Status        Status
	Tons          float64
	Profit        float64
	Cost          float64
	ROI           float64
	RouteTons     []float64
	RouteProfits  []float64
	Margins       []float64
	ShadowPrices  []float64 // one per constraint, only populated when duals were requested
}
