package mobile

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tradedesk/internal/descriptor"
	"tradedesk/internal/montecarlo"
)

func sampleDescriptor() *descriptor.ModelDescriptor {
	return &descriptor.ModelDescriptor{
		NVars: 4,
		Routes: []descriptor.Route{
			{ID: "r1", SellIdx: 0, BuyIdx: 1, FreightIdx: 2, UnitCapacity: 1000},
		},
		Constraints: []descriptor.Constraint{
			{ID: "c1", Kind: descriptor.ConstraintSupply, BoundIdx: 3, BoundMinIdx: 0xFF, OutageIdx: 0xFF, RouteIdx: []uint8{0}},
		},
		Perturbations: []descriptor.PerturbationSpec{{}, {}, {}, {}},
	}
}

func TestSolve_Optimal(t *testing.T) {
	d := sampleDescriptor()
	dBytes, err := descriptor.Encode(d)
	require.NoError(t, err)

	rec, err := Solve(dBytes, []float64{100, 80, 5, 500})
	require.NoError(t, err)
	require.Equal(t, StatusOK, rec.Status)
	require.Equal(t, uint8(1), rec.NRoutes)
	require.Greater(t, rec.Profit, 0.0)
}

func TestSolve_BadDescriptor(t *testing.T) {
	rec, err := Solve([]byte{1, 2, 3}, []float64{1})
	require.NoError(t, err)
	require.Equal(t, StatusBadInput, rec.Status)
}

func TestMonteCarlo_ProducesFilledSensitivity(t *testing.T) {
	d := sampleDescriptor()
	d.Perturbations = []descriptor.PerturbationSpec{
		{Sigma: 2, Lo: 90, Hi: 110},
		{Sigma: 2, Lo: 70, Hi: 90},
		{Sigma: 0.5, Lo: 3, Hi: 8},
		{Sigma: 20, Lo: 400, Hi: 600},
	}
	dBytes, err := descriptor.Encode(d)
	require.NoError(t, err)

	rec, err := MonteCarlo(dBytes, []float64{100, 80, 5, 500}, 200, montecarlo.Thresholds{StrongGo: 1000, Go: 500, Weak: 0})
	require.NoError(t, err)
	require.Equal(t, StatusOK, rec.Status)
	require.Equal(t, uint32(200), rec.NScenarios)
}

func TestVersion(t *testing.T) {
	require.NotEmpty(t, Version())
}
