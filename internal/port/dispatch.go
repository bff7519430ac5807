package port

import (
	"fmt"
	"io"

	"tradedesk/internal/descriptor"
	"tradedesk/internal/errs"
	"tradedesk/internal/lpcore"
	"tradedesk/internal/montecarlo"
)

// ServeOne reads exactly one request frame from r, dispatches it to LP
// Core or the Monte Carlo Runner, and writes exactly one response
// frame to w. Returns io.EOF when r has no further frames, matching
// the caller-loops-until-EOF convention a port server's accept loop
// uses.
func ServeOne(r io.Reader, w io.Writer, thresholds montecarlo.Thresholds) error {
	frame, err := ReadFrame(r)
	if err != nil {
		return err
	}

	cmd, solveReq, mcReq, err := DecodeRequest(frame)
	if err != nil {
		return WriteFrame(w, EncodeSolveResponse(SolveResponse{Status: StatusBadInput}))
	}

	switch cmd {
	case CommandSolve:
		return WriteFrame(w, EncodeSolveResponse(dispatchSolve(solveReq)))
	case CommandMonteCarlo:
		return WriteFrame(w, EncodeMonteCarloResponse(dispatchMonteCarlo(mcReq, thresholds)))
	default:
		return fmt.Errorf("%w: unhandled port command %d", errs.ErrBadInput, cmd)
	}
}

func dispatchSolve(req *SolveRequest) SolveResponse {
	d, err := descriptor.Decode(req.DescriptorBytes)
	if err != nil {
		return SolveResponse{Status: StatusBadInput}
	}
	res, err := lpcore.Solve(d, req.Vars)
	if err != nil {
		return SolveResponse{Status: StatusBadInput}
	}
	status := StatusOK
	switch res.Status {
	case lpcore.StatusInfeasible:
		status = StatusInfeasible
	case lpcore.StatusSolverError:
		status = StatusError
	}
	return SolveResponse{
		Status:       status,
		NRoutes:      uint8(len(d.Routes)),
		NConstraints: uint8(len(d.Constraints)),
		Profit:       res.Profit,
		Tons:         res.Tons,
		Cost:         res.Cost,
		ROI:          res.ROI,
		RouteTons:    padTo(res.RouteTons, len(d.Routes)),
		RouteProfits: padTo(res.RouteProfits, len(d.Routes)),
		Margins:      padTo(res.Margins, len(d.Routes)),
		ShadowPrices: padTo(res.ShadowPrices, len(d.Constraints)),
	}
}

// padTo keeps the encoded array lengths in sync with the response's
// declared counts: non-optimal solves leave the per-route and dual
// slices nil, but the wire shape still carries n values.
func padTo(vs []float64, n int) []float64 {
	if len(vs) == n {
		return vs
	}
	out := make([]float64, n)
	copy(out, vs)
	return out
}

func dispatchMonteCarlo(req *MonteCarloRequest, thresholds montecarlo.Thresholds) MonteCarloResponse {
	d, err := descriptor.Decode(req.DescriptorBytes)
	if err != nil {
		return MonteCarloResponse{Status: StatusBadInput}
	}
	res, err := montecarlo.Run(d, req.Center, int(req.NScenarios), thresholds)
	if err != nil {
		return MonteCarloResponse{Status: StatusBadInput}
	}
	return MonteCarloResponse{
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
		Sensitivity: res.Sensitivity,
	}
}
