package perturb

import (
	"testing"

	"tradedesk/internal/descriptor"
)

func testDescriptor() *descriptor.ModelDescriptor {
	return &descriptor.ModelDescriptor{
		NVars: 3,
		Perturbations: []descriptor.PerturbationSpec{
			{Sigma: 0.1, Lo: -100, Hi: 100, Correlations: []descriptor.CorrelationLink{{VarIdx: 1, Coefficient: 0.5}}},
			{Sigma: 0.2, Lo: -100, Hi: 100},
			{Sigma: 0, Lo: 0, Hi: 0},
		},
	}
}

func TestPerturbDeterministic(t *testing.T) {
	center := []float64{10, 20, 1}
	d := testDescriptor()

	e1 := New(center)
	e2 := New(center)

	for i := 0; i < 20; i++ {
		a := e1.Perturb(center, d)
		b := e2.Perturb(center, d)
		for j := range a {
			if a[j] != b[j] {
				t.Fatalf("scenario %d var %d diverged: %v != %v", i, j, a[j], b[j])
			}
		}
	}
}

// The first N1 scenarios of an N2-scenario run
// (N1 <= N2) are identical to a standalone N1-scenario run.
func TestPerturbMonotonicInScenarioCount(t *testing.T) {
	center := []float64{10, 20, 1}
	d := testDescriptor()

	const n1, n2 = 5, 12
	short := New(center)
	var shortScenarios [][]float64
	for i := 0; i < n1; i++ {
		shortScenarios = append(shortScenarios, short.Perturb(center, d))
	}

	long := New(center)
	for i := 0; i < n2; i++ {
		scenario := long.Perturb(center, d)
		if i < n1 {
			for j := range scenario {
				if scenario[j] != shortScenarios[i][j] {
					t.Fatalf("scenario %d var %d diverged between short/long runs", i, j)
				}
			}
		}
	}
}

func TestPerturbZeroSigmaZeroLoUnchanged(t *testing.T) {
	center := []float64{10, 20, 0.3}
	d := testDescriptor()

	e := New(center)
	for i := 0; i < 10; i++ {
		x := e.Perturb(center, d)
		if x[2] != center[2] {
			t.Fatalf("iteration %d: expected var 2 unchanged, got %v", i, x[2])
		}
	}
}

func TestPerturbRespectsBounds(t *testing.T) {
	center := []float64{0, 0, 0}
	d := &descriptor.ModelDescriptor{
		NVars: 3,
		Perturbations: []descriptor.PerturbationSpec{
			{Sigma: 1000, Lo: -1, Hi: 1},
			{Sigma: 1000, Lo: -1, Hi: 1},
			{Sigma: 0, Lo: 0, Hi: 0},
		},
	}
	e := New(center)
	for i := 0; i < 50; i++ {
		x := e.Perturb(center, d)
		for j := 0; j < 2; j++ {
			if x[j] < -1 || x[j] > 1 {
				t.Fatalf("iteration %d var %d out of bounds: %v", i, j, x[j])
			}
		}
	}
}

func TestBooleanFlip(t *testing.T) {
	center := []float64{1, 0, 0}
	d := &descriptor.ModelDescriptor{
		NVars: 1,
		Perturbations: []descriptor.PerturbationSpec{
			{Sigma: 0, Lo: 1, Hi: 1}, // probability min(1,1)=1: always flips
		},
	}
	e := New(center[:1])
	x := e.Perturb(center[:1], d)
	if x[0] != 0 {
		t.Fatalf("expected a guaranteed flip to 0, got %v", x[0])
	}
}
