package montecarlo

import (
	"math"
	"sort"

	"tradedesk/internal/descriptor"
	"tradedesk/internal/lpcore"
	"tradedesk/internal/perturb"
)

// metric derives the per-scenario value m used for feasibility and
// quantile ranking. min_cost is negated so "higher is better" holds
// uniformly across modes.
func metric(mode descriptor.ObjectiveMode, r *lpcore.Result) float64 {
	switch mode {
	case descriptor.ObjectiveMinCost:
		return -r.Cost
	case descriptor.ObjectiveMaxROI:
		return r.ROI
	default: // max_profit, cvar_adjusted, min_risk
		return r.Profit
	}
}

// isFeasible decides scenario inclusion. min_risk and min_cost admit
// every optimal scenario regardless of metric sign; every other mode
// requires a strictly positive metric. The per-mode branches are the
// contract; do not collapse them into one predicate.
func isFeasible(mode descriptor.ObjectiveMode, m float64) bool {
	switch mode {
	case descriptor.ObjectiveMinRisk:
		return true
	case descriptor.ObjectiveMinCost:
		return true
	default:
		return m > 0
	}
}

// Run drives N perturbed scenarios through the LP Core and summarizes
// the resulting metric distribution. N is clamped to
// MaxScenarios. The PRNG is exclusive to this call.
func Run(d *descriptor.ModelDescriptor, center []float64, n int, thresholds Thresholds) (*Result, error) {
	if n > MaxScenarios {
		n = MaxScenarios
	}
	if n < 0 {
		n = 0
	}

	engine := perturb.New(center)

	var feasibleX [][]float64
	var feasibleM []float64
	nInfeasible := 0

	for i := 0; i < n; i++ {
		scenario := engine.Perturb(center, d)
		res, err := lpcore.SolveMetricOnly(d, scenario)
		if err != nil {
			return nil, err
		}
		if res.Status != lpcore.StatusOptimal {
			nInfeasible++
			continue
		}
		m := metric(d.Objective, res)
		if !isFeasible(d.Objective, m) {
			nInfeasible++
			continue
		}
		feasibleX = append(feasibleX, scenario)
		feasibleM = append(feasibleM, m)
	}

	nFeasible := len(feasibleM)
	result := &Result{
		NScenarios:  n,
		NFeasible:   nFeasible,
		NInfeasible: nInfeasible,
		Sensitivity: make([]float64, d.NVars),
	}

	if nFeasible == 0 {
		// No negative percentiles from an empty sort: every summary
		// stat stays at its zero value.
		result.Signal = Classify(0, 0, 0, thresholds)
		return result, nil
	}

	sorted := append([]float64(nil), feasibleM...)
	sort.Float64s(sorted)

	result.Mean = mean(sorted)
	result.StdDev = stddev(sorted, result.Mean)
	result.Min = sorted[0]
	result.Max = sorted[len(sorted)-1]
	result.P5 = quantile(sorted, 0.05)
	result.P25 = quantile(sorted, 0.25)
	result.P50 = quantile(sorted, 0.50)
	result.P75 = quantile(sorted, 0.75)
	result.P95 = quantile(sorted, 0.95)

	for i := 0; i < d.NVars; i++ {
		col := make([]float64, nFeasible)
		for s, x := range feasibleX {
			col[s] = x[i]
		}
		result.Sensitivity[i] = pearson(col, feasibleM)
	}

	result.Signal = Classify(result.P5, result.P25, result.P50, thresholds)
	return result, nil
}

// quantile returns the value at position floor(nf*q) of an ascending-
// sorted slice, clamped into [0, nf-1] so p95 lands on the last
// element rather than one past it.
func quantile(sorted []float64, q float64) float64 {
	nf := len(sorted)
	if nf == 0 {
		return 0
	}
	idx := int(math.Floor(float64(nf) * q))
	if idx < 0 {
		idx = 0
	}
	if idx >= nf {
		idx = nf - 1
	}
	return sorted[idx]
}

func mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range x {
		sum += v
	}
	return sum / float64(len(x))
}

func stddev(x []float64, mu float64) float64 {
	if len(x) < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range x {
		d := v - mu
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(x)-1))
}

// pearson computes the Pearson correlation coefficient between two
// equal-length series, preserving sign. Returns 0 when either series
// has zero variance (undefined correlation, not an error condition).
func pearson(a, b []float64) float64 {
	n := len(a)
	if n == 0 || n != len(b) {
		return 0
	}
	ma, mb := mean(a), mean(b)

	var cov, varA, varB float64
	for i := 0; i < n; i++ {
		da := a[i] - ma
		db := b[i] - mb
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA <= 0 || varB <= 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}
