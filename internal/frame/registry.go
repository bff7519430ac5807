// Package frame implements the Variable Frame Registry: the
// single source of truth for a product group's variable ordering,
// routes, constraints, API source tags, signal thresholds,
// perturbation defaults, poll intervals, and short aliases. A
// Registry is read-only once loaded — no locks are needed because
// nothing ever mutates it after Load returns.
package frame

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"tradedesk/internal/descriptor"
	"tradedesk/internal/errs"
	"tradedesk/internal/montecarlo"
)

// VariableDef is one YAML entry describing a frame's variable at a
// fixed position — position in the list is the contract for the
// binary layout.
type VariableDef struct {
	Symbol string  `yaml:"symbol"`
	Label  string  `yaml:"label"`
	Unit   string  `yaml:"unit"`
	Min    float64 `yaml:"min"`
	Max    float64 `yaml:"max"`
	Step   float64 `yaml:"step"`
	Source string  `yaml:"source"`
	Group  string  `yaml:"group"`
	Kind   string  `yaml:"kind"` // "continuous" (default) or "boolean"
}

// RouteDef mirrors descriptor.Route, addressing variables by symbol
// rather than wire index — the registry resolves symbols to indices
// at load time so authors never hand-number the wire layout.
type RouteDef struct {
	ID                string  `yaml:"id"`
	Origin            string  `yaml:"origin"`
	Destination       string  `yaml:"destination"`
	Mode              string  `yaml:"mode"`
	Sell              string  `yaml:"sell"`
	Buy               string  `yaml:"buy"`
	Freight           string  `yaml:"freight"`
	TransitCostPerDay float64 `yaml:"transit_cost_per_day"`
	BaseTransitDays   float64 `yaml:"base_transit_days"`
	UnitCapacity      float64 `yaml:"unit_capacity"`
}

// ConstraintDef mirrors descriptor.Constraint by symbol.
type ConstraintDef struct {
	ID           string    `yaml:"id"`
	Kind         string    `yaml:"kind"`
	Bound        string    `yaml:"bound"`
	BoundMin     string    `yaml:"bound_min,omitempty"`
	Outage       string    `yaml:"outage,omitempty"`
	OutageFactor float64   `yaml:"outage_factor,omitempty"`
	Routes       []string  `yaml:"routes"`
	Coefficients []float64 `yaml:"coefficients,omitempty"`
}

// PerturbationDef mirrors descriptor.PerturbationSpec by symbol.
type PerturbationDef struct {
	Variable     string             `yaml:"variable"`
	Sigma        float64            `yaml:"sigma"`
	Lo           float64            `yaml:"lo"`
	Hi           float64            `yaml:"hi"`
	Correlations []CorrelationDef   `yaml:"correlations,omitempty"`
}

// CorrelationDef mirrors descriptor.CorrelationLink by symbol.
type CorrelationDef struct {
	Variable    string  `yaml:"variable"`
	Coefficient float64 `yaml:"coefficient"`
}

// groupFile is the on-disk shape of one product group's YAML
// definition, loaded by Load.
type groupFile struct {
	ProductGroup    string            `yaml:"product_group"`
	Variables       []VariableDef     `yaml:"variables"`
	Routes          []RouteDef        `yaml:"routes"`
	Constraints     []ConstraintDef   `yaml:"constraints"`
	Perturbations   []PerturbationDef `yaml:"perturbations"`
	Thresholds      montecarlo.Thresholds `yaml:"thresholds"`
	PollIntervalSec int               `yaml:"poll_interval_seconds"`
	Aliases         map[string]string `yaml:"aliases"`
}

// Registry is one product group's fully-resolved frame: the ordered
// variable list (positional = wire index), a ready-to-use
// descriptor.ModelDescriptor skeleton (everything but Objective/
// RiskAversion/ProfitFloor, which the caller supplies per run), signal
// thresholds, default poll interval, and short aliases.
type Registry struct {
	ProductGroup string
	Variables    []VariableDef
	Index        map[string]int // symbol -> wire index
	Descriptor   descriptor.ModelDescriptor
	Thresholds   montecarlo.Thresholds
	PollInterval time.Duration
	Aliases      map[string]string
}

// Load reads one product group's YAML definition and resolves it into
// a Registry. Symbol references that don't resolve to a declared
// variable or route are rejected as bad_input at load time, not at
// solve time.
func Load(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read frame file %s: %v", errs.ErrBadInput, path, err)
	}

	var gf groupFile
	if err := yaml.Unmarshal(raw, &gf); err != nil {
		return nil, fmt.Errorf("%w: parse frame file %s: %v", errs.ErrBadInput, path, err)
	}

	reg := &Registry{
		ProductGroup: gf.ProductGroup,
		Variables:    gf.Variables,
		Index:        make(map[string]int, len(gf.Variables)),
		Thresholds:   gf.Thresholds,
		PollInterval: time.Duration(gf.PollIntervalSec) * time.Second,
		Aliases:      gf.Aliases,
	}
	for i, v := range gf.Variables {
		reg.Index[v.Symbol] = i
	}

	resolve := func(symbol string) (uint8, error) {
		if symbol == "" {
			return 0xFF, nil
		}
		idx, ok := reg.Index[symbol]
		if !ok {
			return 0, fmt.Errorf("%w: frame %s references unknown variable %q", errs.ErrBadInput, gf.ProductGroup, symbol)
		}
		if idx > 0xFE {
			return 0, fmt.Errorf("%w: frame %s exceeds %d variables", errs.ErrBadInput, gf.ProductGroup, descriptor.MaxVariables)
		}
		return uint8(idx), nil
	}

	routeIndex := make(map[string]int, len(gf.Routes))
	for i, rd := range gf.Routes {
		routeIndex[rd.ID] = i
	}

	d := &reg.Descriptor
	d.NVars = len(gf.Variables)

	for _, rd := range gf.Routes {
		sell, err := resolve(rd.Sell)
		if err != nil {
			return nil, err
		}
		buy, err := resolve(rd.Buy)
		if err != nil {
			return nil, err
		}
		freight, err := resolve(rd.Freight)
		if err != nil {
			return nil, err
		}
		d.Routes = append(d.Routes, descriptor.Route{
			ID: rd.ID, Origin: rd.Origin, Destination: rd.Destination, Mode: rd.Mode,
			SellIdx: sell, BuyIdx: buy, FreightIdx: freight,
			TransitCostPerDay: rd.TransitCostPerDay,
			BaseTransitDays:   rd.BaseTransitDays,
			UnitCapacity:      rd.UnitCapacity,
		})
	}

	kindOf := map[string]descriptor.ConstraintKind{
		"supply": descriptor.ConstraintSupply, "demand": descriptor.ConstraintDemand,
		"fleet": descriptor.ConstraintFleet, "capital": descriptor.ConstraintCapital,
		"custom": descriptor.ConstraintCustom,
	}
	for _, cd := range gf.Constraints {
		kind, ok := kindOf[cd.Kind]
		if !ok {
			return nil, fmt.Errorf("%w: constraint %s has unknown kind %q", errs.ErrBadInput, cd.ID, cd.Kind)
		}
		bound, err := resolve(cd.Bound)
		if err != nil {
			return nil, err
		}
		boundMin, err := resolve(cd.BoundMin)
		if err != nil {
			return nil, err
		}
		outage, err := resolve(cd.Outage)
		if err != nil {
			return nil, err
		}
		routeIdx := make([]uint8, 0, len(cd.Routes))
		for _, rid := range cd.Routes {
			ri, ok := routeIndex[rid]
			if !ok {
				return nil, fmt.Errorf("%w: constraint %s references unknown route %q", errs.ErrBadInput, cd.ID, rid)
			}
			routeIdx = append(routeIdx, uint8(ri))
		}
		d.Constraints = append(d.Constraints, descriptor.Constraint{
			ID: cd.ID, Kind: kind, BoundIdx: bound, BoundMinIdx: boundMin, OutageIdx: outage,
			OutageFactor: cd.OutageFactor, RouteIdx: routeIdx, Coefficients: cd.Coefficients,
		})
	}

	perturbBySymbol := make(map[string]descriptor.PerturbationSpec, len(gf.Perturbations))
	for _, pd := range gf.Perturbations {
		if _, ok := reg.Index[pd.Variable]; !ok {
			return nil, fmt.Errorf("%w: frame %s perturbation references unknown variable %q", errs.ErrBadInput, gf.ProductGroup, pd.Variable)
		}
		links := make([]descriptor.CorrelationLink, 0, len(pd.Correlations))
		for _, cl := range pd.Correlations {
			vi, ok := reg.Index[cl.Variable]
			if !ok {
				return nil, fmt.Errorf("%w: perturbation %s correlates to unknown variable %q", errs.ErrBadInput, pd.Variable, cl.Variable)
			}
			links = append(links, descriptor.CorrelationLink{VarIdx: uint8(vi), Coefficient: cl.Coefficient})
		}
		perturbBySymbol[pd.Variable] = descriptor.PerturbationSpec{Sigma: pd.Sigma, Lo: pd.Lo, Hi: pd.Hi, Correlations: links}
	}
	d.Perturbations = make([]descriptor.PerturbationSpec, len(gf.Variables))
	for i, v := range gf.Variables {
		if spec, ok := perturbBySymbol[v.Symbol]; ok {
			d.Perturbations[i] = spec
		}
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}

	return reg, nil
}

// DefaultVector returns the frame's declared Min values as the
// starting center vector, for callers that need a baseline before
// merging live market data.
func (r *Registry) DefaultVector() []float64 {
	v := make([]float64, len(r.Variables))
	for i, vd := range r.Variables {
		v[i] = vd.Min
	}
	return v
}
