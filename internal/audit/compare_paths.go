package audit

import "time"

// autoFollowupWindow is the fixed lookahead for matching an
// automated go/strong_go signal to a human solve.
const autoFollowupWindow = 30 * time.Minute

// ComparePathsResult is compare_paths's output: how often an
// automated go/strong_go signal was followed, within the lookahead
// window, by a human solve for the same product group.
type ComparePathsResult struct {
	AutoSignalCount int
	HumanCount      int
	MatchedCount    int
	AlignmentRatio  float64
	UnmatchedAuto   []string // audit IDs of auto triggers with no human follow-up
	UnmatchedHuman  []string // audit IDs of human solves matched to no auto precedent
}

// ComparePaths splits pg's audits in [window[0], window[1]] into
// auto-triggered vs human-triggered, and for every automated audit
// whose signal is strong_go or go, tests whether a human solve for the
// same product group landed within the following 30 minutes.
func (idx *Index) ComparePaths(pg string, window [2]time.Time) ComparePathsResult {
	all := idx.FindByTimeRange(pg, window[0], window[1])

	var autoSignals, human []Audit
	for _, a := range all {
		if a.Trigger == "auto" {
			if a.Signal == "strong_go" || a.Signal == "go" {
				autoSignals = append(autoSignals, a)
			}
			continue
		}
		human = append(human, a)
	}

	var res ComparePathsResult
	res.AutoSignalCount = len(autoSignals)
	res.HumanCount = len(human)

	matchedHuman := make(map[string]bool, len(human))
	for _, a := range autoSignals {
		matched := false
		for _, h := range human {
			if !h.CreatedAt.Before(a.CreatedAt) && h.CreatedAt.Sub(a.CreatedAt) <= autoFollowupWindow {
				matched = true
				matchedHuman[h.ID] = true
			}
		}
		if matched {
			res.MatchedCount++
		} else {
			res.UnmatchedAuto = append(res.UnmatchedAuto, a.ID)
		}
	}
	for _, h := range human {
		if !matchedHuman[h.ID] {
			res.UnmatchedHuman = append(res.UnmatchedHuman, h.ID)
		}
	}

	if res.AutoSignalCount > 0 {
		res.AlignmentRatio = float64(res.MatchedCount) / float64(res.AutoSignalCount)
	}
	return res
}
