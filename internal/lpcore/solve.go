package lpcore

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/optimize/convex/lp"

	"tradedesk/internal/descriptor"
	"tradedesk/internal/errs"
)

const simplexTol = 1e-10

// dualEpsilon is the bound perturbation used to estimate shadow prices
// by finite difference (see shadowPrices' doc comment for why).
const dualEpsilon = 1e-3

// Solve runs a single LP Core solve with shadow prices attached — the
// path the Solve Pipeline's "solve" mode uses.
func Solve(d *descriptor.ModelDescriptor, vars []float64) (*Result, error) {
	return solve(d, vars, true)
}

// SolveMetricOnly runs a single solve without shadow prices. Monte
// Carlo scenarios only need status and the derived metric, and
// skipping the dual finite-difference resolves keeps a 1000-scenario
// run from costing 1000×(1+constraints) Simplex calls.
func SolveMetricOnly(d *descriptor.ModelDescriptor, vars []float64) (*Result, error) {
	return solve(d, vars, false)
}

func solve(d *descriptor.ModelDescriptor, vars []float64, withDuals bool) (*Result, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if len(vars) != d.NVars {
		return nil, fmt.Errorf("%w: variable vector length %d != n_vars %d", errs.ErrBadInput, len(vars), d.NVars)
	}

	sf := build(d, vars)
	if sf.nCons == 0 {
		// An LP with no constraints has no finite optimum under a
		// profitable objective and is outside what this engine models;
		// report it the same way an unclassified solver status would be.
		return &Result{Status: StatusSolverError, Margins: sf.margins}, nil
	}

	status, z, x, err := runSimplex(sf)
	if err != nil {
		return nil, err
	}

	result := &Result{Status: status, Margins: sf.margins}
	if status != StatusOptimal {
		return result, nil
	}

	result.RouteTons = make([]float64, sf.nRoutes)
	result.RouteProfits = make([]float64, sf.nRoutes)
	for r := 0; r < sf.nRoutes; r++ {
		tons := x[r]
		result.RouteTons[r] = tons
		result.RouteProfits[r] = tons * sf.margins[r]
		if tons > 0.5 {
			result.Tons += tons
			result.Profit += tons * sf.margins[r]
			result.Cost += tons * routeCostAt(d, r, vars)
		}
	}
	if result.Cost > 0 {
		result.ROI = result.Profit / result.Cost * 100
	}

	if withDuals {
		result.ShadowPrices = shadowPrices(d, vars, sf, z)
	}

	return result, nil
}

func routeCostAt(d *descriptor.ModelDescriptor, r int, vars []float64) float64 {
	return routeCost(d.Routes[r], vars)
}

// runSimplex invokes gonum's Simplex and maps its outcome to the LP
// Core's status taxonomy: optimal, infeasible, or — for any
// status Simplex doesn't distinguish as one of those two —
// solver_error.
func runSimplex(sf *standardForm) (Status, float64, []float64, error) {
	z, x, err := lp.Simplex(sf.c, sf.a, sf.b, simplexTol, nil)
	switch {
	case err == nil:
		return StatusOptimal, z, x, nil
	case errors.Is(err, lp.ErrInfeasible):
		return StatusInfeasible, 0, nil, nil
	default:
		return StatusSolverError, 0, nil, nil
	}
}

// businessObjective converts Simplex's minimized value back to the
// mode's natural objective: profit for every mode except min_cost,
// whose minimized value already is the quantity of interest.
func businessObjective(mode descriptor.ObjectiveMode, z float64) float64 {
	if mode == descriptor.ObjectiveMinCost {
		return z
	}
	return -z
}

// shadowPrices estimates each constraint's bound-variable shadow price
// by one-sided finite difference: bump the bound variable by
// dualEpsilon, re-solve, and divide the change in business objective
// by the bump. This avoids depending on gonum's internal basis
// bookkeeping (lp.Simplex does not expose it), at the cost of one
// extra Simplex call per constraint and of blending the marginal
// effect of any variable shared across multiple constraints' bounds.
func shadowPrices(d *descriptor.ModelDescriptor, vars []float64, base *standardForm, zBase float64) []float64 {
	prices := make([]float64, len(d.Constraints))
	objBase := businessObjective(d.Objective, zBase)

	for i, cons := range d.Constraints {
		bumped := append([]float64(nil), vars...)
		bumped[cons.BoundIdx] += dualEpsilon

		sf := build(d, bumped)
		status, z, _, err := runSimplex(sf)
		if err != nil || status != StatusOptimal {
			continue
		}
		prices[i] = (businessObjective(d.Objective, z) - objBase) / dualEpsilon
	}

	return prices
}
