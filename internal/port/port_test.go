package port

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"tradedesk/internal/descriptor"
	"tradedesk/internal/montecarlo"
)

func sampleDescriptor() *descriptor.ModelDescriptor {
	return &descriptor.ModelDescriptor{
		NVars: 3,
		Routes: []descriptor.Route{
			{ID: "r1", SellIdx: 0, BuyIdx: 1, FreightIdx: 2, UnitCapacity: 1000},
		},
		Perturbations: []descriptor.PerturbationSpec{{}, {}, {}},
	}
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("hello")))

	got, err := ReadFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)
}

func TestSolveRequestRoundTrip(t *testing.T) {
	d := sampleDescriptor()
	dBytes, err := descriptor.Encode(d)
	require.NoError(t, err)

	payload := EncodeSolveRequest(SolveRequest{DescriptorBytes: dBytes, Vars: []float64{100, 80, 5}})

	cmd, solveReq, mcReq, err := DecodeRequest(payload)
	require.NoError(t, err)
	require.Equal(t, CommandSolve, cmd)
	require.Nil(t, mcReq)
	require.Equal(t, []float64{100, 80, 5}, solveReq.Vars)
}

func TestMonteCarloRequestRoundTrip(t *testing.T) {
	d := sampleDescriptor()
	dBytes, err := descriptor.Encode(d)
	require.NoError(t, err)

	payload := EncodeMonteCarloRequest(MonteCarloRequest{NScenarios: 500, DescriptorBytes: dBytes, Center: []float64{100, 80, 5}})

	cmd, solveReq, mcReq, err := DecodeRequest(payload)
	require.NoError(t, err)
	require.Equal(t, CommandMonteCarlo, cmd)
	require.Nil(t, solveReq)
	require.Equal(t, uint32(500), mcReq.NScenarios)
	require.Equal(t, []float64{100, 80, 5}, mcReq.Center)
}

func TestServeOne_Solve(t *testing.T) {
	d := sampleDescriptor()
	dBytes, err := descriptor.Encode(d)
	require.NoError(t, err)

	var in, out bytes.Buffer
	require.NoError(t, WriteFrame(&in, EncodeSolveRequest(SolveRequest{DescriptorBytes: dBytes, Vars: []float64{100, 80, 5}})))

	require.NoError(t, ServeOne(&in, &out, montecarlo.Thresholds{}))

	frame, err := ReadFrame(&out)
	require.NoError(t, err)
	resp, err := DecodeSolveResponse(frame)
	require.NoError(t, err)
	require.Equal(t, uint8(1), resp.NRoutes)
}

func TestServeOne_BadInputFrame(t *testing.T) {
	var in, out bytes.Buffer
	require.NoError(t, WriteFrame(&in, []byte{99}))

	require.NoError(t, ServeOne(&in, &out, montecarlo.Thresholds{}))

	frame, err := ReadFrame(&out)
	require.NoError(t, err)
	resp, err := DecodeSolveResponse(frame)
	require.NoError(t, err)
	require.Equal(t, StatusBadInput, resp.Status)
}
