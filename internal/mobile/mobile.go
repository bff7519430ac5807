package mobile

import (
	"fmt"

	"tradedesk/internal/descriptor"
	"tradedesk/internal/errs"
	"tradedesk/internal/lpcore"
	"tradedesk/internal/montecarlo"
)

// version is the string version() returns; a cgo export wraps this in
// a static C string with a lifetime tied to the process, not the call.
const version = "tradedesk-mobile-1"

// Version returns the embedded core's version string.
func Version() string { return version }

// Solve is solve()'s Go-side body: decode the wire descriptor, run one
// LP Core solve, and copy the result into a fixed-capacity SolveRecord.
// A cgo export wraps descriptorPtr/descriptorLen/varsPtr/nVars into the
// []byte/[]float64 this takes, and out_record into the returned
// pointer's target.
func Solve(descriptorBytes []byte, vars []float64) (*SolveRecord, error) {
	d, err := descriptor.Decode(descriptorBytes)
	if err != nil {
		return &SolveRecord{Status: StatusBadInput}, nil
	}
	if len(d.Routes) > MaxRoutes || len(d.Constraints) > MaxConstraints {
		return &SolveRecord{Status: StatusBadInput}, fmt.Errorf("%w: descriptor exceeds mobile fixed-capacity record (routes %d/%d, constraints %d/%d)",
			errs.ErrBadInput, len(d.Routes), MaxRoutes, len(d.Constraints), MaxConstraints)
	}

	res, err := lpcore.Solve(d, vars)
	if err != nil {
		return &SolveRecord{Status: StatusBadInput}, nil
	}

	rec := &SolveRecord{
		NRoutes:      uint8(len(d.Routes)),
		NConstraints: uint8(len(d.Constraints)),
		Profit:       res.Profit,
		Tons:         res.Tons,
		Cost:         res.Cost,
		ROI:          res.ROI,
	}
	switch res.Status {
	case lpcore.StatusOptimal:
		rec.Status = StatusOK
	case lpcore.StatusInfeasible:
		rec.Status = StatusInfeasible
	default:
		rec.Status = StatusError
	}
	copy(rec.RouteTons[:], res.RouteTons)
	copy(rec.RouteProfits[:], res.RouteProfits)
	copy(rec.Margins[:], res.Margins)
	copy(rec.ShadowPrices[:], res.ShadowPrices)
	return rec, nil
}

// MonteCarlo is monte_carlo()'s Go-side body, mirroring Solve's
// decode-bounds-check-copy shape.
func MonteCarlo(descriptorBytes []byte, center []float64, nScenarios int, thresholds montecarlo.Thresholds) (*MonteCarloRecord, error) {
	d, err := descriptor.Decode(descriptorBytes)
	if err != nil {
		return &MonteCarloRecord{Status: StatusBadInput}, nil
	}
	if d.NVars > MaxSensitivity {
		return &MonteCarloRecord{Status: StatusBadInput}, fmt.Errorf("%w: descriptor has %d variables, exceeds mobile sensitivity capacity %d",
			errs.ErrBadInput, d.NVars, MaxSensitivity)
	}

	res, err := montecarlo.Run(d, center, nScenarios, thresholds)
	if err != nil {
		return &MonteCarloRecord{Status: StatusBadInput}, nil
	}

	rec := &MonteCarloRecord{
		Status:      StatusOK,
		NVars:       uint16(d.NVars),
		NScenarios:  uint32(res.NScenarios),
		NFeasible:   uint32(res.NFeasible),
		NInfeasible: uint32(res.NInfeasible),
		Mean:        res.Mean,
		StdDev:      res.StdDev,
		P5:          res.P5,
		P25:         res.P25,
		P50:         res.P50,
		P75:         res.P75,
		P95:         res.P95,
		Min:         res.Min,
		Max:         res.Max,
	}
	copy(rec.Sensitivity[:], res.Sensitivity)
	return rec, nil
}
