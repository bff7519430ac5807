// Package descriptor implements the model descriptor wire format
// and its in-memory types: Variable, Route, Constraint,
// PerturbationSpec, ModelDescriptor, and the VariableVector codec.
package descriptor

import "fmt"

// VariableKind distinguishes a continuous variable from a boolean one.
// Boolean variables are encoded as 0.0/1.0 at the wire layer.
type VariableKind uint8

const (
	KindContinuous VariableKind = iota
	KindBoolean
)

// Variable describes one entry of the frame's variable vector.
type Variable struct {
	Symbol  string
	Label   string
	Unit    string
	Min     float64
	Max     float64
	Step    float64
	Source  string
	Group   string
	Kind    VariableKind
}

// ConstraintKind selects how a constraint's per-route coefficients are
// computed against the current variable vector.
type ConstraintKind uint8

const (
	ConstraintSupply ConstraintKind = iota
	ConstraintDemand
	ConstraintFleet
	ConstraintCapital
	ConstraintCustom
)

// ObjectiveMode selects the LP Core's objective function.
type ObjectiveMode uint8

const (
	ObjectiveMaxProfit ObjectiveMode = iota
	ObjectiveMinCost
	ObjectiveMaxROI
	ObjectiveCVaRAdjusted
	ObjectiveMinRisk
)

// Wire-format maxima. The codec rejects any descriptor that
// would exceed these at either encode or decode time.
const (
	MaxVariables             = 64
	MaxRoutes                = 16
	MaxConstraints           = 32
	MaxCorrelationsPerVar    = 8
	absentIndex        uint8 = 0xFF
)

// Route is an origin-destination transport lane expressed as an LP
// decision variable (tons shipped).
type Route struct {
	ID                string
	Origin            string
	Destination       string
	Mode              string
	SellIdx           uint8
	BuyIdx            uint8
	FreightIdx        uint8
	TransitCostPerDay float64
	BaseTransitDays   float64
	UnitCapacity      float64
}

// Constraint bounds a linear combination of route tonnages.
type Constraint struct {
	ID            string
	Kind          ConstraintKind
	BoundIdx      uint8 // primary bound variable, always present
	BoundMinIdx   uint8 // floor variable; absentIndex (0xFF) if unset
	OutageIdx     uint8 // outage variable; absentIndex (0xFF) if unset
	OutageFactor  float64
	RouteIdx      []uint8
	Coefficients  []float64 // only meaningful/populated when Kind == ConstraintCustom
}

// HasBoundMin reports whether a floor variable is set.
func (c Constraint) HasBoundMin() bool { return c.BoundMinIdx != absentIndex }

// HasOutage reports whether an outage variable is set.
func (c Constraint) HasOutage() bool { return c.OutageIdx != absentIndex }

// CorrelationLink is one (variable index, additive coefficient) entry
// in a PerturbationSpec's correlation list.
type CorrelationLink struct {
	VarIdx      uint8
	Coefficient float64
}

// PerturbationSpec is the per-variable Monte Carlo perturbation
// distribution. When Sigma == 0, Lo doubles as a boolean
// flip-probability in [0,1].
type PerturbationSpec struct {
	Sigma        float64
	Lo           float64
	Hi           float64
	Correlations []CorrelationLink
}

// ModelDescriptor is the complete binary-encodable specification of one
// LP instance.
type ModelDescriptor struct {
	NVars         int
	Routes        []Route
	Constraints   []Constraint
	Objective     ObjectiveMode
	RiskAversion  float64
	ProfitFloor   float64
	Perturbations []PerturbationSpec // length == NVars
}

// Validate checks the structural invariants that are not
// already enforced by the codec's bounds checks (used both after decode
// and before encode, so hand-built descriptors get the same guarantees
// as wire-decoded ones).
func (d *ModelDescriptor) Validate() error {
	if d.NVars < 0 || d.NVars > MaxVariables {
		return fmt.Errorf("%w: n_vars %d out of range [0,%d]", errBadInput, d.NVars, MaxVariables)
	}
	if len(d.Routes) > MaxRoutes {
		return fmt.Errorf("%w: %d routes exceeds max %d", errBadInput, len(d.Routes), MaxRoutes)
	}
	if len(d.Constraints) > MaxConstraints {
		return fmt.Errorf("%w: %d constraints exceeds max %d", errBadInput, len(d.Constraints), MaxConstraints)
	}
	if len(d.Perturbations) != d.NVars {
		return fmt.Errorf("%w: %d perturbations != n_vars %d", errBadInput, len(d.Perturbations), d.NVars)
	}

	checkIdx := func(label string, idx uint8) error {
		if int(idx) >= d.NVars {
			return fmt.Errorf("%w: %s index %d >= n_vars %d", errBadInput, label, idx, d.NVars)
		}
		return nil
	}

	for i, r := range d.Routes {
		if err := checkIdx(fmt.Sprintf("route[%d].sell", i), r.SellIdx); err != nil {
			return err
		}
		if err := checkIdx(fmt.Sprintf("route[%d].buy", i), r.BuyIdx); err != nil {
			return err
		}
		if err := checkIdx(fmt.Sprintf("route[%d].freight", i), r.FreightIdx); err != nil {
			return err
		}
		if r.UnitCapacity <= 0 {
			return fmt.Errorf("%w: route[%d] unit_capacity must be > 0", errBadInput, i)
		}
	}

	for i, c := range d.Constraints {
		if err := checkIdx(fmt.Sprintf("constraint[%d].bound", i), c.BoundIdx); err != nil {
			return err
		}
		if c.HasBoundMin() {
			if err := checkIdx(fmt.Sprintf("constraint[%d].bound_min", i), c.BoundMinIdx); err != nil {
				return err
			}
		}
		if c.HasOutage() {
			if err := checkIdx(fmt.Sprintf("constraint[%d].outage", i), c.OutageIdx); err != nil {
				return err
			}
		}
		for _, ri := range c.RouteIdx {
			if int(ri) >= len(d.Routes) {
				return fmt.Errorf("%w: constraint[%d] route index %d >= n_routes %d", errBadInput, i, ri, len(d.Routes))
			}
		}
		if c.Kind == ConstraintCustom && len(c.Coefficients) != len(c.RouteIdx) {
			return fmt.Errorf("%w: constraint[%d] custom coefficients len %d != route count %d",
				errBadInput, i, len(c.Coefficients), len(c.RouteIdx))
		}
	}

	for i, p := range d.Perturbations {
		if p.Lo > p.Hi {
			return fmt.Errorf("%w: perturbation[%d] lo %v > hi %v", errBadInput, i, p.Lo, p.Hi)
		}
		if len(p.Correlations) > MaxCorrelationsPerVar {
			return fmt.Errorf("%w: perturbation[%d] has %d correlations, max %d",
				errBadInput, i, len(p.Correlations), MaxCorrelationsPerVar)
		}
		for _, link := range p.Correlations {
			if err := checkIdx(fmt.Sprintf("perturbation[%d] correlation", i), link.VarIdx); err != nil {
				return err
			}
		}
	}

	return nil
}
