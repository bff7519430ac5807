package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tradedesk/internal/audit"
	"tradedesk/internal/errs"
	"tradedesk/internal/frame"
	"tradedesk/internal/idgen"
	"tradedesk/internal/lpcore"
	"tradedesk/internal/metrics"
	"tradedesk/internal/montecarlo"
)

// run drives one request through the full state machine,
// always returning a frozen audit.Audit (even on STALE/ERROR) and only
// a non-nil error for conditions that prevented an audit from being
// produced at all (an unknown product group). A cancelled context
// yields a "cancelled" audit via cancelAt, not an error.
func (r *Runner) run(ctx context.Context, req Request) (audit.Audit, error) {
	runID := idgen.NewRunID()
	started := time.Now().UTC()
	sc := &solveContext{
		runID:     runID,
		req:       req,
		state:     StateStarted,
		startedAt: started,
		phaseTS:   map[string]time.Time{"started": started},
	}
	r.emit(Event{RunID: runID, CallerRef: req.CallerRef, State: StateStarted, Tag: EventOptimizing, At: started})

	reg, ok := r.frames[req.ProductGroup]
	if !ok {
		return audit.Audit{}, fmt.Errorf("%w: unknown product group %q", errs.ErrBadInput, req.ProductGroup)
	}
	sc.descr = &reg.Descriptor

	freshness, contracts := r.checkContracts(ctx, sc)
	if a, cancelled := r.cancelAt(ctx, sc, freshness, contracts); cancelled {
		return a, nil
	}

	vars, _, framingNote := r.frameVars(ctx, sc, req.Variables, reg)
	sc.vars = vars
	if a, cancelled := r.cancelAt(ctx, sc, freshness, contracts); cancelled {
		return a, nil
	}

	sc.state = StateSolving
	sc.phaseTS["solving"] = time.Now().UTC()
	r.emit(Event{RunID: runID, CallerRef: req.CallerRef, State: StateSolving, Tag: EventOptimizing, At: sc.phaseTS["solving"]})

	result, resultStatus, signal, solveErr := r.solve(sc, reg)

	a := audit.Audit{
		ID:               idgen.NewAuditID(),
		Mode:             string(req.Mode),
		ProductGroup:     req.ProductGroup,
		TraderID:         req.TraderID,
		Trigger:          req.Trigger,
		CallerRef:        req.CallerRef,
		Freshness:        freshness,
		Variables:        vars,
		SourceTimestamps: sourceTimestamps(req),
		ResultStatus:     resultStatus,
		Signal:           signal,
		Contracts:        contracts,
		PhaseTimestamps:  sc.phaseTS,
		CreatedAt:        time.Now().UTC(),
	}
	if result != nil {
		a.Profit = result.Profit
		a.Tons = result.Tons
	}
	if framingNote != "" {
		a.PhaseTimestamps["framing_note_recorded"] = time.Now().UTC()
	}

	finalState := StateDone
	finalTag := EventReady
	if solveErr != nil {
		finalState = StateError
		finalTag = EventFailed
	} else if freshness.Stale {
		finalTag = EventStaleContracts
	}
	sc.phaseTS["done"] = time.Now().UTC()

	metrics.ObserveRun(string(req.Mode), resultStatus)
	metrics.ObserveDuration(string(req.Mode), time.Since(started).Seconds())

	r.writeAudit(a)
	r.emit(Event{RunID: runID, CallerRef: req.CallerRef, State: finalState, Tag: finalTag, At: sc.phaseTS["done"]})

	return a, nil
}

// cancelAt checks for caller cancellation at a phase boundary — the
// only points a run can stop early, since one solver call is atomic.
// A cancelled run still writes its audit, with result_status
// "cancelled", and emits a terminal ERROR event.
func (r *Runner) cancelAt(ctx context.Context, sc *solveContext, freshness audit.Freshness, contracts []audit.ContractSnapshot) (audit.Audit, bool) {
	if ctx.Err() == nil {
		return audit.Audit{}, false
	}
	sc.state = StateError
	now := time.Now().UTC()
	sc.phaseTS["cancelled"] = now

	vars := sc.vars
	if vars == nil {
		vars = sc.req.Variables
	}
	a := audit.Audit{
		ID:               idgen.NewAuditID(),
		Mode:             string(sc.req.Mode),
		ProductGroup:     sc.req.ProductGroup,
		TraderID:         sc.req.TraderID,
		Trigger:          sc.req.Trigger,
		CallerRef:        sc.req.CallerRef,
		Freshness:        freshness,
		Variables:        vars,
		SourceTimestamps: sourceTimestamps(sc.req),
		ResultStatus:     "cancelled",
		Contracts:        contracts,
		PhaseTimestamps:  sc.phaseTS,
		CreatedAt:        now,
	}
	metrics.ObserveRun(string(sc.req.Mode), "cancelled")
	r.writeAudit(a)
	r.emit(Event{RunID: sc.runID, CallerRef: sc.req.CallerRef, State: StateError, Tag: EventFailed, Message: "cancelled", At: now})
	return a, true
}

// checkContracts is Phase 1: query the freshness oracle,
// synchronously ingest on any changed/missing contract, and downgrade
// any oracle failure to a recorded "stale" condition rather than
// failing the run.
func (r *Runner) checkContracts(ctx context.Context, sc *solveContext) (audit.Freshness, []audit.ContractSnapshot) {
	sc.state = StateContractsChecked
	sc.phaseTS["contracts_checked"] = time.Now().UTC()
	r.emit(Event{RunID: sc.runID, CallerRef: sc.req.CallerRef, State: StateContractsChecked, Tag: EventOptimizing, At: sc.phaseTS["contracts_checked"]})

	if sc.req.SkipContracts || r.freshness == nil {
		return audit.Freshness{Checked: false}, nil
	}

	cctx, cancel := context.WithTimeout(ctx, r.externalTimeout)
	defer cancel()
	if err := r.limiter.Wait(cctx); err != nil {
		return r.stale(sc, err), nil
	}

	refs, err := r.freshness.ActiveContracts(sc.req.ProductGroup)
	if err != nil {
		return r.stale(sc, err), nil
	}
	diff, err := r.freshness.Diff(refs)
	if err != nil {
		return r.stale(sc, err), nil
	}

	freshness := audit.Freshness{Checked: true}
	if len(diff.Changed) > 0 || len(diff.Missing) > 0 {
		sc.state = StateIngesting
		sc.phaseTS["ingesting"] = time.Now().UTC()
		r.emit(Event{RunID: sc.runID, CallerRef: sc.req.CallerRef, State: StateIngesting, Tag: EventOptimizing, At: sc.phaseTS["ingesting"]})
		if r.ingest == nil {
			freshness.Stale = true
			freshness.Reason = "contracts changed but no ingest coordinator configured"
		} else {
			n, err := r.ingest.Ingest(sc.req.ProductGroup, diff)
			if err != nil {
				freshness.Stale = true
				freshness.Reason = err.Error()
			} else {
				freshness.IngestedCount = n
				sc.state = StateIngestDone
				sc.phaseTS["ingest_done"] = time.Now().UTC()
				r.emit(Event{RunID: sc.runID, CallerRef: sc.req.CallerRef, State: StateIngestDone, Tag: EventContractsUpdate, At: sc.phaseTS["ingest_done"]})
			}
		}
	}
	if freshness.Stale {
		sc.state = StateStale
		r.emit(Event{RunID: sc.runID, CallerRef: sc.req.CallerRef, State: StateStale, Tag: EventStaleContracts, Message: freshness.Reason, At: time.Now().UTC()})
	}

	// Re-query so the audit snapshots the post-ingest active set.
	if freshness.IngestedCount > 0 {
		if again, err := r.freshness.ActiveContracts(sc.req.ProductGroup); err == nil {
			refs = again
		}
	}
	snapshots := make([]audit.ContractSnapshot, 0, len(refs))
	for _, c := range refs {
		snapshots = append(snapshots, audit.ContractSnapshot{ID: c.ID, FileHash: c.StoredHash})
	}
	return freshness, snapshots
}

// stale downgrades an oracle failure to a recorded stale condition:
// the run continues, the warning lands in the audit, and the event
// stream shows the STALE transition.
func (r *Runner) stale(sc *solveContext, cause error) audit.Freshness {
	sc.state = StateStale
	r.emit(Event{RunID: sc.runID, CallerRef: sc.req.CallerRef, State: StateStale, Tag: EventStaleContracts, Message: cause.Error(), At: time.Now().UTC()})
	return audit.Freshness{Checked: true, Stale: true, Reason: cause.Error()}
}

// frameVars is Phase 2: merge the supplied vector with the
// frame's defaults, then call the external framer. A framer error
// never fails the pipeline — the pre-framing vector is used and the
// error recorded as the note.
func (r *Runner) frameVars(ctx context.Context, sc *solveContext, supplied []float64, reg *frame.Registry) ([]float64, []FramingAdjustment, string) {
	sc.state = StateFraming
	sc.phaseTS["framing"] = time.Now().UTC()
	r.emit(Event{RunID: sc.runID, CallerRef: sc.req.CallerRef, State: StateFraming, Tag: EventOptimizing, At: sc.phaseTS["framing"]})

	framed := func() {
		sc.state = StateFramed
		sc.phaseTS["framed"] = time.Now().UTC()
		r.emit(Event{RunID: sc.runID, CallerRef: sc.req.CallerRef, State: StateFramed, Tag: EventOptimizing, At: sc.phaseTS["framed"]})
	}

	merged := mergeVars(reg.DefaultVector(), supplied)

	if sc.req.SkipFraming || r.framer == nil {
		framed()
		return merged, nil, ""
	}

	fctx, cancel := context.WithTimeout(ctx, r.externalTimeout)
	defer cancel()
	if err := r.limiter.Wait(fctx); err != nil {
		framed()
		return merged, nil, "framing rate-limited: " + err.Error()
	}

	out, adjustments, note, err := r.framer.Frame(sc.req.ProductGroup, merged)
	framed()
	if err != nil {
		return merged, nil, "framing error: " + err.Error()
	}
	return out, adjustments, note
}

// sourceTimestamps copies the request's per-source last-fetch times
// so the frozen audit never aliases caller-owned map storage.
func sourceTimestamps(req Request) map[string]time.Time {
	out := make(map[string]time.Time, len(req.SourceTimestamps))
	for k, v := range req.SourceTimestamps {
		out[k] = v
	}
	return out
}

// mergeVars overlays supplied onto defaults position-by-position;
// supplied's shorter length (a caller that only knows some variables)
// just leaves the trailing defaults in place.
func mergeVars(defaults, supplied []float64) []float64 {
	out := append([]float64(nil), defaults...)
	for i := 0; i < len(supplied) && i < len(out); i++ {
		out[i] = supplied[i]
	}
	return out
}

// solve is Phase 3: dispatch to LP Core or the Monte Carlo
// Runner per req.Mode. A fatal failure (bad_input — malformed
// descriptor) is the only condition that produces a terminal ERROR;
// infeasible/solver_error are themselves the recorded result status.
func (r *Runner) solve(sc *solveContext, reg *frame.Registry) (*lpcore.Result, string, string, error) {
	switch sc.req.Mode {
	case ModeMonteCarlo:
		n := sc.req.ScenarioCount
		if n <= 0 {
			n = 1000
		}
		metrics.AddScenarios(n)
		res, err := montecarlo.Run(sc.descr, sc.vars, n, reg.Thresholds)
		if err != nil {
			return nil, "error", "", err
		}
		return nil, "optimal", string(res.Signal), nil
	default:
		res, err := lpcore.Solve(sc.descr, sc.vars)
		if err != nil {
			return nil, "error", "", err
		}
		return res, string(res.Status), "", nil
	}
}

// writeAudit persists a to the WAL first (the authoritative store),
// then to the in-memory index regardless of whether the WAL write
// succeeded — a wal_io failure never loses the audit for readers.
func (r *Runner) writeAudit(a audit.Audit) {
	if r.wal != nil {
		payload, err := json.Marshal(a)
		if err == nil {
			if _, err := r.wal.Append("audit", payload); err != nil {
				// wal_io is a warning, not a failure path; metrics.IncWALIOError
				// has already been incremented inside wal.Append.
				_ = err
			}
		}
	}
	if r.index != nil {
		r.index.Insert(a)
	}
}
