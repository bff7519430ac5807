package audit

import "strings"

// PerformanceSummary is performance_summary's output: outcome and
// signal tallies over whatever scope was requested.
//
// scope resolution: "all" scans every audit; "product_group:<pg>" and
// "trader:<id>" scan that secondary index only. An unrecognized scope
// string is treated as "all" rather than erroring, since this is a
// reporting query, not a validation boundary.
type PerformanceSummary struct {
	Scope           string
	TotalRuns       int
	OptimalCount    int
	InfeasibleCount int
	ErrorCount      int
	AvgProfit       float64
	SignalCounts    map[string]int
}

// PerformanceSummary aggregates outcome and signal counts over scope.
func (idx *Index) PerformanceSummary(scope string) PerformanceSummary {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var seqs []int
	switch {
	case strings.HasPrefix(scope, "product_group:"):
		pg := strings.TrimPrefix(scope, "product_group:")
		seqs = idx.byProductGrp[pg]
	case strings.HasPrefix(scope, "trader:"):
		trader := strings.TrimPrefix(scope, "trader:")
		seqs = idx.byTrader[trader]
	default:
		seqs = make([]int, len(idx.store))
		for i := range idx.store {
			seqs[i] = i
		}
	}

	summary := PerformanceSummary{Scope: scope, SignalCounts: make(map[string]int)}
	var profitSum float64
	for _, s := range seqs {
		a := idx.store[s]
		summary.TotalRuns++
		switch a.ResultStatus {
		case "optimal":
			summary.OptimalCount++
			profitSum += a.Profit
		case "infeasible":
			summary.InfeasibleCount++
		case "error", "cancelled":
			summary.ErrorCount++
		}
		if a.Signal != "" {
			summary.SignalCounts[a.Signal]++
		}
	}
	if summary.OptimalCount > 0 {
		summary.AvgProfit = profitSum / float64(summary.OptimalCount)
	}
	return summary
}
