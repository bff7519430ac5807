package descriptor

import (
	"errors"
	"testing"

	"tradedesk/internal/errs"
)

func TestValidateAcceptsSampleDescriptor(t *testing.T) {
	if err := sampleDescriptor().Validate(); err != nil {
		t.Fatalf("expected a valid descriptor, got %v", err)
	}
}

func TestValidateRejectsPerturbationCountMismatch(t *testing.T) {
	d := sampleDescriptor()
	d.Perturbations = d.Perturbations[:1]
	if err := d.Validate(); !errors.Is(err, errs.ErrBadInput) {
		t.Fatalf("expected ErrBadInput, got %v", err)
	}
}

func TestValidateRejectsZeroCapacityRoute(t *testing.T) {
	d := sampleDescriptor()
	d.Routes[0].UnitCapacity = 0
	if err := d.Validate(); !errors.Is(err, errs.ErrBadInput) {
		t.Fatalf("expected ErrBadInput, got %v", err)
	}
}

func TestValidateRejectsInvertedPerturbationRange(t *testing.T) {
	d := sampleDescriptor()
	d.Perturbations[0].Lo = 1
	d.Perturbations[0].Hi = -1
	if err := d.Validate(); !errors.Is(err, errs.ErrBadInput) {
		t.Fatalf("expected ErrBadInput, got %v", err)
	}
}

func TestValidateRejectsCustomCoefficientLengthMismatch(t *testing.T) {
	d := sampleDescriptor()
	d.Constraints[1].Coefficients = nil
	if err := d.Validate(); !errors.Is(err, errs.ErrBadInput) {
		t.Fatalf("expected ErrBadInput, got %v", err)
	}
}

func TestConstraintHasBoundMinAndOutage(t *testing.T) {
	c := Constraint{BoundMinIdx: absentIndex, OutageIdx: 2}
	if c.HasBoundMin() {
		t.Error("expected HasBoundMin false for absentIndex")
	}
	if !c.HasOutage() {
		t.Error("expected HasOutage true for a real index")
	}
}
