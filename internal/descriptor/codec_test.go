package descriptor

import (
	"errors"
	"testing"

	"tradedesk/internal/errs"
)

func sampleDescriptor() *ModelDescriptor {
	return &ModelDescriptor{
		NVars:        4,
		Objective:    ObjectiveMaxProfit,
		RiskAversion: 0.25,
		ProfitFloor:  1000,
		Routes: []Route{
			{SellIdx: 0, BuyIdx: 1, FreightIdx: 2, TransitCostPerDay: 12.5, BaseTransitDays: 4, UnitCapacity: 50000},
		},
		Constraints: []Constraint{
			{
				Kind:         ConstraintSupply,
				BoundIdx:     3,
				BoundMinIdx:  absentIndex,
				OutageIdx:    absentIndex,
				OutageFactor: 0,
				RouteIdx:     []uint8{0},
			},
			{
				Kind:         ConstraintCustom,
				BoundIdx:     3,
				BoundMinIdx:  0,
				OutageIdx:    1,
				OutageFactor: 0.5,
				RouteIdx:     []uint8{0},
				Coefficients: []float64{1.5},
			},
		},
		Perturbations: []PerturbationSpec{
			{Sigma: 0.1, Lo: -0.2, Hi: 0.2, Correlations: []CorrelationLink{{VarIdx: 1, Coefficient: 0.3}}},
			{Sigma: 0.05, Lo: -0.1, Hi: 0.1},
			{Sigma: 0, Lo: 0.5, Hi: 0.5},
			{Sigma: 0.2, Lo: -0.4, Hi: 0.4},
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	d := sampleDescriptor()
	data, err := Encode(d)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if got.NVars != d.NVars || got.Objective != d.Objective ||
		got.RiskAversion != d.RiskAversion || got.ProfitFloor != d.ProfitFloor {
		t.Fatalf("scalar fields mismatch: got %+v, want %+v", got, d)
	}
	if len(got.Routes) != len(d.Routes) || got.Routes[0] != d.Routes[0] {
		t.Fatalf("routes mismatch: got %+v, want %+v", got.Routes, d.Routes)
	}
	if len(got.Constraints) != len(d.Constraints) {
		t.Fatalf("constraints count mismatch: got %d, want %d", len(got.Constraints), len(d.Constraints))
	}
	for i := range d.Constraints {
		want := d.Constraints[i]
		have := got.Constraints[i]
		if have.Kind != want.Kind || have.BoundIdx != want.BoundIdx ||
			have.BoundMinIdx != want.BoundMinIdx || have.OutageIdx != want.OutageIdx ||
			have.OutageFactor != want.OutageFactor {
			t.Fatalf("constraint[%d] mismatch: got %+v, want %+v", i, have, want)
		}
		if len(have.RouteIdx) != len(want.RouteIdx) || have.RouteIdx[0] != want.RouteIdx[0] {
			t.Fatalf("constraint[%d] route idx mismatch: got %v, want %v", i, have.RouteIdx, want.RouteIdx)
		}
		if want.Kind == ConstraintCustom {
			if len(have.Coefficients) != len(want.Coefficients) || have.Coefficients[0] != want.Coefficients[0] {
				t.Fatalf("constraint[%d] coefficients mismatch: got %v, want %v", i, have.Coefficients, want.Coefficients)
			}
		}
	}
	if len(got.Perturbations) != len(d.Perturbations) {
		t.Fatalf("perturbations count mismatch: got %d, want %d", len(got.Perturbations), len(d.Perturbations))
	}
	for i := range d.Perturbations {
		want := d.Perturbations[i]
		have := got.Perturbations[i]
		if have.Sigma != want.Sigma || have.Lo != want.Lo || have.Hi != want.Hi {
			t.Fatalf("perturbation[%d] mismatch: got %+v, want %+v", i, have, want)
		}
		if len(have.Correlations) != len(want.Correlations) {
			t.Fatalf("perturbation[%d] correlations count mismatch: got %d, want %d",
				i, len(have.Correlations), len(want.Correlations))
		}
		for j := range want.Correlations {
			if have.Correlations[j] != want.Correlations[j] {
				t.Fatalf("perturbation[%d].correlations[%d] mismatch: got %+v, want %+v",
					i, j, have.Correlations[j], want.Correlations[j])
			}
		}
	}
}

func TestEncodeRejectsInvalidDescriptor(t *testing.T) {
	d := sampleDescriptor()
	d.Routes[0].SellIdx = 200 // out of range for n_vars=4

	if _, err := Encode(d); !errors.Is(err, errs.ErrBadInput) {
		t.Fatalf("expected ErrBadInput, got %v", err)
	}
}

func TestDecodeRejectsTruncatedBuffer(t *testing.T) {
	d := sampleDescriptor()
	data, err := Encode(d)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	for _, cut := range []int{0, 1, 2, 3, len(data) - 1} {
		if _, err := Decode(data[:cut]); !errors.Is(err, errs.ErrBadInput) {
			t.Fatalf("cut=%d: expected ErrBadInput, got %v", cut, err)
		}
	}
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	d := sampleDescriptor()
	data, err := Encode(d)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	padded := append(data, 0xAA)
	if _, err := Decode(padded); !errors.Is(err, errs.ErrBadInput) {
		t.Fatalf("expected ErrBadInput for trailing bytes, got %v", err)
	}
}

func TestDecodeRejectsOversizeHeaders(t *testing.T) {
	// n_vars header alone, set far beyond MaxVariables.
	data := []byte{0xFF, 0xFF}
	if _, err := Decode(data); !errors.Is(err, errs.ErrBadInput) {
		t.Fatalf("expected ErrBadInput for oversize n_vars, got %v", err)
	}
}

func TestEncodeVarsDecodeVarsRoundTrip(t *testing.T) {
	v := []float64{1.5, -2.25, 0, 3.0000001, 1e10}
	data := EncodeVars(v)
	if len(data) != len(v)*8 {
		t.Fatalf("expected %d bytes, got %d", len(v)*8, len(data))
	}

	got, err := DecodeVars(data, len(v))
	if err != nil {
		t.Fatalf("DecodeVars: %v", err)
	}
	for i := range v {
		if got[i] != v[i] {
			t.Fatalf("index %d: got %v, want %v", i, got[i], v[i])
		}
	}
}

func TestDecodeVarsRejectsLengthMismatch(t *testing.T) {
	data := EncodeVars([]float64{1, 2, 3})
	if _, err := DecodeVars(data, 4); !errors.Is(err, errs.ErrBadInput) {
		t.Fatalf("expected ErrBadInput, got %v", err)
	}
}
