package lpcore

import (
	"gonum.org/v1/gonum/mat"

	"tradedesk/internal/descriptor"
)

// standardForm is the equality-standard-form LP (minimize c'x s.t.
// Ax=b, x>=0) that build() emits. Columns [0,nRoutes) are the route
// tons variables; the remaining 2*nConstraints columns are the range
// and complement slacks described below.
type standardForm struct {
	c        []float64
	a        *mat.Dense
	b        []float64
	nRoutes  int
	nCons    int
	margins  []float64
}

// routeMargin is margin_r = sell_r - buy_r - freight_r -
// base_transit_days_r * transit_cost_per_day_r.
func routeMargin(r descriptor.Route, vars []float64) float64 {
	return vars[r.SellIdx] - vars[r.BuyIdx] - vars[r.FreightIdx] - r.BaseTransitDays*r.TransitCostPerDay
}

// routeCost is buy_r + freight_r, used both for min_cost's objective
// and for the capital constraint coefficient.
func routeCost(r descriptor.Route, vars []float64) float64 {
	return vars[r.BuyIdx] + vars[r.FreightIdx]
}

// effectiveBounds computes the [lower, upper] activity range for one
// constraint row. An outage reduces the upper bound only; the
// floor (bound_min) is never subject to outage reduction — the
// asymmetry is intentional.
func effectiveBounds(c descriptor.Constraint, vars []float64) (lower, upper float64) {
	upper = vars[c.BoundIdx]
	if c.HasOutage() && vars[c.OutageIdx] > 0.5 {
		upper *= c.OutageFactor
	}
	if upper < 0 {
		upper = 0
	}
	if c.HasBoundMin() {
		lower = vars[c.BoundMinIdx]
	}
	return lower, upper
}

// rowCoefficient is coeff_r for one constraint row, keyed by kind.
func rowCoefficient(c descriptor.Constraint, routeSlot int, d *descriptor.ModelDescriptor, vars []float64) float64 {
	routeIdx := c.RouteIdx[routeSlot]
	route := d.Routes[routeIdx]
	switch c.Kind {
	case descriptor.ConstraintFleet:
		return 1 / route.UnitCapacity
	case descriptor.ConstraintCapital:
		return routeCost(route, vars)
	case descriptor.ConstraintCustom:
		return c.Coefficients[routeSlot]
	default: // supply, demand
		return 1
	}
}

// objectiveCoefficients maps each mode to the minimization cost vector
// over route tons. max_profit/max_roi/cvar_adjusted/min_risk
// all single-solve as max_profit; min_cost minimizes cost directly.
func objectiveCoefficients(d *descriptor.ModelDescriptor, vars []float64) []float64 {
	c := make([]float64, len(d.Routes))
	for r, route := range d.Routes {
		switch d.Objective {
		case descriptor.ObjectiveMinCost:
			c[r] = routeCost(route, vars)
		default:
			c[r] = -routeMargin(route, vars)
		}
	}
	return c
}

// build constructs the equality-standard-form LP for d evaluated at
// vars. Each range constraint lower <= sum coeff_r*tons_r <= upper
// becomes two equality rows via a pair of slacks:
//
//	sum coeff_r*tons_r - s_i        = lower
//	                s_i + t_i        = upper - lower
//
// with s_i, t_i >= 0. A negative (upper-lower) gap is infeasible by
// construction — Simplex's Phase I will fail to find a basic feasible
// solution, which this package maps to StatusInfeasible.
func build(d *descriptor.ModelDescriptor, vars []float64) *standardForm {
	nRoutes := len(d.Routes)
	nCons := len(d.Constraints)

	margins := make([]float64, nRoutes)
	for r, route := range d.Routes {
		margins[r] = routeMargin(route, vars)
	}

	if nCons == 0 {
		return &standardForm{nRoutes: nRoutes, nCons: 0, margins: margins}
	}

	nVarsTotal := nRoutes + 2*nCons
	nRows := 2 * nCons

	c := make([]float64, nVarsTotal)
	copy(c, objectiveCoefficients(d, vars))

	rows := make([]float64, nRows*nVarsTotal)
	b := make([]float64, nRows)

	at := func(row, col int) *float64 { return &rows[row*nVarsTotal+col] }

	for i, cons := range d.Constraints {
		rowA := 2 * i   // sum coeff*tons - s_i = lower
		rowB := 2*i + 1 // s_i + t_i = upper - lower
		sIdx := nRoutes + 2*i
		tIdx := nRoutes + 2*i + 1

		lower, upper := effectiveBounds(cons, vars)

		for slot, routeIdx := range cons.RouteIdx {
			*at(rowA, int(routeIdx)) += rowCoefficient(cons, slot, d, vars)
		}
		*at(rowA, sIdx) = -1
		b[rowA] = lower

		*at(rowB, sIdx) = 1
		*at(rowB, tIdx) = 1
		b[rowB] = upper - lower
	}

	return &standardForm{
		c:       c,
		a:       mat.NewDense(nRows, nVarsTotal, rows),
		b:       b,
		nRoutes: nRoutes,
		nCons:   nCons,
		margins: margins,
	}
}
