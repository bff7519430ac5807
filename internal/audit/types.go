// Package audit implements the in-memory Audit Index: an
// append-only arena of frozen Solve Audits with four secondary
// orderings, plus the decision-chain, path-comparison, and
// performance-summary queries built on top of it. The WAL
// (internal/wal) is the durable store; this index is the fast,
// queryable mirror the pipeline and cmd/enginectl read from.
package audit

import "time"

// AutoTrader is the synthetic trader tag assigned to automated
// (non-human-triggered) runs in the by-trader ordering.
const AutoTrader = "__auto__"

// ContractSnapshot is one contract as it existed at audit time.
type ContractSnapshot struct {
	ID           string
	Counterparty string
	Version      int
	FileHash     string
	ClauseCount  int
	ClauseIDs    []string
}

// Freshness captures the contract-freshness check's outcome.
type Freshness struct {
	Checked       bool
	Stale         bool
	Reason        string
	IngestedCount int
}

// Audit is the immutable record of one pipeline run. Once Insert
// returns, no field is mutated in place — Insert and every query
// return deep copies (cloneAudit), so caller-side mutation of a
// returned Audit has no effect on the stored record.
type Audit struct {
	ID           string
	Mode         string // "solve" | "monte_carlo"
	ProductGroup string
	TraderID     string // raw caller-supplied value; "" for automated runs
	Trigger      string // "auto" | "human"
	CallerRef    string

	Freshness        Freshness
	Variables        []float64
	SourceTimestamps map[string]time.Time

	ResultStatus string // "optimal" | "infeasible" | "solver_error" | "bad_input" | "error" | "cancelled"
	Signal       string // montecarlo.Signal as string; "" for solve-mode audits
	Profit       float64
	Tons         float64

	Contracts       []ContractSnapshot
	PhaseTimestamps map[string]time.Time

	CreatedAt time.Time
}

// traderKey is the by-(trader_id, timestamp) index key for an audit:
// its own TraderID, or the synthetic AutoTrader tag when none was
// supplied.
func (a Audit) traderKey() string {
	if a.TraderID != "" {
		return a.TraderID
	}
	return AutoTrader
}

func cloneAudit(a Audit) Audit {
	out := a
	if a.Variables != nil {
		out.Variables = append([]float64(nil), a.Variables...)
	}
	if a.SourceTimestamps != nil {
		out.SourceTimestamps = make(map[string]time.Time, len(a.SourceTimestamps))
		for k, v := range a.SourceTimestamps {
			out.SourceTimestamps[k] = v
		}
	}
	if a.PhaseTimestamps != nil {
		out.PhaseTimestamps = make(map[string]time.Time, len(a.PhaseTimestamps))
		for k, v := range a.PhaseTimestamps {
			out.PhaseTimestamps[k] = v
		}
	}
	if a.Contracts != nil {
		out.Contracts = make([]ContractSnapshot, len(a.Contracts))
		for i, c := range a.Contracts {
			cc := c
			if c.ClauseIDs != nil {
				cc.ClauseIDs = append([]string(nil), c.ClauseIDs...)
			}
			out.Contracts[i] = cc
		}
	}
	return out
}
