package audit

import (
	"testing"
	"time"
)

func sampleAudit(id, trader, pg, trigger, signal string, t time.Time, vars []float64, contracts []ContractSnapshot) Audit {
	return Audit{
		ID:           id,
		Mode:         "solve",
		ProductGroup: pg,
		TraderID:     trader,
		Trigger:      trigger,
		Signal:       signal,
		ResultStatus: "optimal",
		Variables:    vars,
		Contracts:    contracts,
		CreatedAt:    t,
	}
}

func TestInsertAndFindByID(t *testing.T) {
	idx := New()
	base := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	idx.Insert(sampleAudit("a1", "trader1", "grain", "human", "", base, []float64{1, 2}, nil))

	got, ok := idx.FindByID("a1")
	if !ok {
		t.Fatal("expected a1 to be found")
	}
	if got.ProductGroup != "grain" {
		t.Errorf("product group: got %q", got.ProductGroup)
	}
}

// Stored audits must be immune to mutation through any handle the
// caller retains.
func TestStoredAuditIsImmuneToCallerMutation(t *testing.T) {
	idx := New()
	base := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	vars := []float64{1, 2, 3}
	a := sampleAudit("a1", "trader1", "grain", "human", "", base, vars, nil)
	idx.Insert(a)

	// Mutate the caller's slice after Insert — the stored copy must
	// not see this.
	vars[0] = 999

	got, _ := idx.FindByID("a1")
	if got.Variables[0] != 1 {
		t.Fatalf("stored audit was affected by post-insert caller mutation: got %v", got.Variables[0])
	}

	// Mutate what FindByID returned — a second call must not see this either.
	got.Variables[0] = 777
	again, _ := idx.FindByID("a1")
	if again.Variables[0] != 1 {
		t.Fatalf("mutating a query result affected the stored audit: got %v", again.Variables[0])
	}
}

func TestFindByTraderUsesAutoTagForEmptyTraderID(t *testing.T) {
	idx := New()
	base := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	idx.Insert(sampleAudit("a1", "", "grain", "auto", "go", base, nil, nil))

	autos := idx.FindByTrader(AutoTrader)
	if len(autos) != 1 || autos[0].ID != "a1" {
		t.Fatalf("expected a1 under the synthetic auto trader tag, got %+v", autos)
	}
}

func TestRecentReturnsDescending(t *testing.T) {
	idx := New()
	base := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		idx.Insert(sampleAudit(string(rune('a'+i)), "t1", "grain", "human", "", base.Add(time.Duration(i)*time.Minute), nil, nil))
	}
	recent := idx.Recent(3)
	if len(recent) != 3 {
		t.Fatalf("expected 3 results, got %d", len(recent))
	}
	if recent[0].ID != "e" || recent[1].ID != "d" || recent[2].ID != "c" {
		t.Fatalf("expected descending e,d,c, got %s,%s,%s", recent[0].ID, recent[1].ID, recent[2].ID)
	}
}

func TestDecisionChainClassifiesTransitions(t *testing.T) {
	idx := New()
	base := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

	c1 := ContractSnapshot{ID: "k1", Version: 1}
	idx.Insert(sampleAudit("a1", "trader1", "grain", "human", "", base, []float64{400, 300}, []ContractSnapshot{c1}))

	// Variable change only.
	idx.Insert(sampleAudit("a2", "trader1", "grain", "human", "", base.Add(10*time.Minute), []float64{410, 300}, []ContractSnapshot{c1}))

	// Contract version bump.
	c1v2 := ContractSnapshot{ID: "k1", Version: 2}
	idx.Insert(sampleAudit("a3", "trader1", "grain", "human", "", base.Add(20*time.Minute), []float64{410, 300}, []ContractSnapshot{c1v2}))

	// No material change.
	idx.Insert(sampleAudit("a4", "trader1", "grain", "human", "", base.Add(30*time.Minute), []float64{410, 300}, []ContractSnapshot{c1v2}))

	chain := idx.DecisionChain("trader1")
	if len(chain) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(chain))
	}
	want := []string{"initial", "variable_change", "contract_update", "recheck"}
	for i, w := range want {
		if chain[i].Classification != w {
			t.Errorf("entry %d: classification = %s, want %s", i, chain[i].Classification, w)
		}
	}
	if chain[1].Variables[0].Delta != 10 {
		t.Errorf("expected delta 10, got %v", chain[1].Variables[0].Delta)
	}
	if len(chain[2].Contracts.VersionChanged) != 1 {
		t.Errorf("expected one version-changed contract, got %+v", chain[2].Contracts)
	}
	if chain[2].ElapsedSeconds != 600 {
		t.Errorf("expected 600s elapsed, got %v", chain[2].ElapsedSeconds)
	}
}

func TestComparePathsMatchesWithinLookahead(t *testing.T) {
	idx := New()
	base := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

	idx.Insert(sampleAudit("auto1", "", "grain", "auto", "strong_go", base, nil, nil))
	idx.Insert(sampleAudit("human1", "trader1", "grain", "human", "", base.Add(10*time.Minute), nil, nil))

	idx.Insert(sampleAudit("auto2", "", "grain", "auto", "go", base.Add(time.Hour), nil, nil))
	// No human follow-up within 30 minutes of auto2.
	idx.Insert(sampleAudit("human2", "trader1", "grain", "human", "", base.Add(2*time.Hour), nil, nil))

	window := [2]time.Time{base.Add(-time.Minute), base.Add(3 * time.Hour)}
	res := idx.ComparePaths("grain", window)

	if res.AutoSignalCount != 2 {
		t.Fatalf("expected 2 auto signals, got %d", res.AutoSignalCount)
	}
	if res.MatchedCount != 1 {
		t.Fatalf("expected 1 matched, got %d", res.MatchedCount)
	}
	if res.AlignmentRatio != 0.5 {
		t.Fatalf("expected alignment ratio 0.5, got %v", res.AlignmentRatio)
	}
	if len(res.UnmatchedAuto) != 1 || res.UnmatchedAuto[0] != "auto2" {
		t.Fatalf("expected auto2 unmatched, got %v", res.UnmatchedAuto)
	}
	if len(res.UnmatchedHuman) != 1 || res.UnmatchedHuman[0] != "human2" {
		t.Fatalf("expected human2 unmatched, got %v", res.UnmatchedHuman)
	}
}

func TestPerformanceSummaryScopedToProductGroup(t *testing.T) {
	idx := New()
	base := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

	a := sampleAudit("a1", "t1", "grain", "human", "", base, nil, nil)
	a.Profit = 1000
	idx.Insert(a)

	b := sampleAudit("a2", "t1", "grain", "human", "", base.Add(time.Minute), nil, nil)
	b.ResultStatus = "infeasible"
	idx.Insert(b)

	c := sampleAudit("a3", "t1", "soy", "human", "", base, nil, nil)
	c.Profit = 5000
	idx.Insert(c)

	summary := idx.PerformanceSummary("product_group:grain")
	if summary.TotalRuns != 2 {
		t.Fatalf("expected 2 runs in scope, got %d", summary.TotalRuns)
	}
	if summary.OptimalCount != 1 || summary.InfeasibleCount != 1 {
		t.Fatalf("expected 1 optimal + 1 infeasible, got %+v", summary)
	}
	if summary.AvgProfit != 1000 {
		t.Fatalf("expected avg profit 1000, got %v", summary.AvgProfit)
	}
}
