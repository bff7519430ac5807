package descriptor

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"tradedesk/internal/errs"
)

var errBadInput = errs.ErrBadInput

// wireReader is a small bounds-checked cursor over a byte slice. Every
// read method returns errBadInput (wrapped with context) instead of
// panicking when the read would run past the end of the buffer.
type wireReader struct {
	buf []byte
	pos int
}

func (r *wireReader) need(n int) error {
	if r.pos+n > len(r.buf) {
		return fmt.Errorf("%w: read past end of buffer (need %d bytes at offset %d, have %d)",
			errBadInput, n, r.pos, len(r.buf))
	}
	return nil
}

func (r *wireReader) u8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *wireReader) u16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *wireReader) f64() (float64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	bits := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return math.Float64frombits(bits), nil
}

// Encode produces the canonical little-endian byte encoding of d.
// Encoding the same descriptor twice always yields identical bytes:
// fields are written in a fixed order with no padding.
func Encode(d *ModelDescriptor) ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := &wireWriter{&buf}

	w.u16(uint16(d.NVars))
	w.u8(uint8(len(d.Routes)))
	w.u8(uint8(len(d.Constraints)))
	w.u8(uint8(d.Objective))
	w.f64(d.RiskAversion)
	w.f64(d.ProfitFloor)

	for _, r := range d.Routes {
		w.u8(r.SellIdx)
		w.u8(r.BuyIdx)
		w.u8(r.FreightIdx)
		w.f64(r.TransitCostPerDay)
		w.f64(r.BaseTransitDays)
		w.f64(r.UnitCapacity)
	}

	for _, c := range d.Constraints {
		w.u8(uint8(c.Kind))
		w.u8(c.BoundIdx)
		w.u8(c.BoundMinIdx)
		w.u8(c.OutageIdx)
		w.f64(c.OutageFactor)
		w.u8(uint8(len(c.RouteIdx)))
		for _, ri := range c.RouteIdx {
			w.u8(ri)
		}
		if c.Kind == ConstraintCustom {
			for _, coef := range c.Coefficients {
				w.f64(coef)
			}
		}
	}

	for _, p := range d.Perturbations {
		w.f64(p.Sigma)
		w.f64(p.Lo)
		w.f64(p.Hi)
		w.u8(uint8(len(p.Correlations)))
		for _, link := range p.Correlations {
			w.u8(link.VarIdx)
			w.f64(link.Coefficient)
		}
	}

	return buf.Bytes(), nil
}

// Decode parses a descriptor from its canonical byte encoding. It fails
// with errBadInput (via errors.Is) on any truncated read, out-of-range
// variable index, or maxima violation.
func Decode(data []byte) (*ModelDescriptor, error) {
	r := &wireReader{buf: data}

	nVarsWide, err := r.u16()
	if err != nil {
		return nil, err
	}
	nVars := int(nVarsWide)
	if nVars > MaxVariables {
		return nil, fmt.Errorf("%w: n_vars %d exceeds max %d", errBadInput, nVars, MaxVariables)
	}

	nRoutes, err := r.u8()
	if err != nil {
		return nil, err
	}
	if int(nRoutes) > MaxRoutes {
		return nil, fmt.Errorf("%w: n_routes %d exceeds max %d", errBadInput, nRoutes, MaxRoutes)
	}

	nConstraints, err := r.u8()
	if err != nil {
		return nil, err
	}
	if int(nConstraints) > MaxConstraints {
		return nil, fmt.Errorf("%w: n_constraints %d exceeds max %d", errBadInput, nConstraints, MaxConstraints)
	}

	objRaw, err := r.u8()
	if err != nil {
		return nil, err
	}
	if objRaw > uint8(ObjectiveMinRisk) {
		return nil, fmt.Errorf("%w: objective_mode %d unrecognized", errBadInput, objRaw)
	}

	lambda, err := r.f64()
	if err != nil {
		return nil, err
	}
	profitFloor, err := r.f64()
	if err != nil {
		return nil, err
	}

	d := &ModelDescriptor{
		NVars:        nVars,
		Objective:    ObjectiveMode(objRaw),
		RiskAversion: lambda,
		ProfitFloor:  profitFloor,
	}

	checkVarIdx := func(idx uint8) error {
		if int(idx) >= nVars {
			return fmt.Errorf("%w: variable index %d >= n_vars %d", errBadInput, idx, nVars)
		}
		return nil
	}

	for i := 0; i < int(nRoutes); i++ {
		var route Route
		if route.SellIdx, err = r.u8(); err != nil {
			return nil, err
		}
		if route.BuyIdx, err = r.u8(); err != nil {
			return nil, err
		}
		if route.FreightIdx, err = r.u8(); err != nil {
			return nil, err
		}
		if err := checkVarIdx(route.SellIdx); err != nil {
			return nil, err
		}
		if err := checkVarIdx(route.BuyIdx); err != nil {
			return nil, err
		}
		if err := checkVarIdx(route.FreightIdx); err != nil {
			return nil, err
		}
		if route.TransitCostPerDay, err = r.f64(); err != nil {
			return nil, err
		}
		if route.BaseTransitDays, err = r.f64(); err != nil {
			return nil, err
		}
		if route.UnitCapacity, err = r.f64(); err != nil {
			return nil, err
		}
		d.Routes = append(d.Routes, route)
	}

	for i := 0; i < int(nConstraints); i++ {
		var c Constraint
		kindRaw, err := r.u8()
		if err != nil {
			return nil, err
		}
		if kindRaw > uint8(ConstraintCustom) {
			return nil, fmt.Errorf("%w: constraint[%d] kind %d unrecognized", errBadInput, i, kindRaw)
		}
		c.Kind = ConstraintKind(kindRaw)

		if c.BoundIdx, err = r.u8(); err != nil {
			return nil, err
		}
		if err := checkVarIdx(c.BoundIdx); err != nil {
			return nil, err
		}
		if c.BoundMinIdx, err = r.u8(); err != nil {
			return nil, err
		}
		if c.HasBoundMin() {
			if err := checkVarIdx(c.BoundMinIdx); err != nil {
				return nil, err
			}
		}
		if c.OutageIdx, err = r.u8(); err != nil {
			return nil, err
		}
		if c.HasOutage() {
			if err := checkVarIdx(c.OutageIdx); err != nil {
				return nil, err
			}
		}
		if c.OutageFactor, err = r.f64(); err != nil {
			return nil, err
		}

		nRoutesInC, err := r.u8()
		if err != nil {
			return nil, err
		}
		c.RouteIdx = make([]uint8, nRoutesInC)
		for j := range c.RouteIdx {
			ri, err := r.u8()
			if err != nil {
				return nil, err
			}
			if int(ri) >= int(nRoutes) {
				return nil, fmt.Errorf("%w: constraint[%d] route index %d >= n_routes %d", errBadInput, i, ri, nRoutes)
			}
			c.RouteIdx[j] = ri
		}

		if c.Kind == ConstraintCustom {
			c.Coefficients = make([]float64, nRoutesInC)
			for j := range c.Coefficients {
				if c.Coefficients[j], err = r.f64(); err != nil {
					return nil, err
				}
			}
		}

		d.Constraints = append(d.Constraints, c)
	}

	for i := 0; i < nVars; i++ {
		var p PerturbationSpec
		if p.Sigma, err = r.f64(); err != nil {
			return nil, err
		}
		if p.Lo, err = r.f64(); err != nil {
			return nil, err
		}
		if p.Hi, err = r.f64(); err != nil {
			return nil, err
		}
		nCorr, err := r.u8()
		if err != nil {
			return nil, err
		}
		if int(nCorr) > MaxCorrelationsPerVar {
			return nil, fmt.Errorf("%w: perturbation[%d] has %d correlations, max %d",
				errBadInput, i, nCorr, MaxCorrelationsPerVar)
		}
		for j := 0; j < int(nCorr); j++ {
			var link CorrelationLink
			if link.VarIdx, err = r.u8(); err != nil {
				return nil, err
			}
			if err := checkVarIdx(link.VarIdx); err != nil {
				return nil, err
			}
			if link.Coefficient, err = r.f64(); err != nil {
				return nil, err
			}
			p.Correlations = append(p.Correlations, link)
		}
		d.Perturbations = append(d.Perturbations, p)
	}

	if r.pos != len(r.buf) {
		return nil, fmt.Errorf("%w: %d trailing bytes after descriptor", errBadInput, len(r.buf)-r.pos)
	}

	return d, nil
}

// wireWriter is the unchecked counterpart of wireReader: Encode has
// already validated the descriptor, so writes cannot fail except via
// io.Writer errors, which bytes.Buffer never returns.
type wireWriter struct {
	buf *bytes.Buffer
}

func (w *wireWriter) u8(v uint8) { w.buf.WriteByte(v) }

func (w *wireWriter) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

func (w *wireWriter) f64(v float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	w.buf.Write(b[:])
}

// EncodeVars encodes a variable vector to n_vars × f64 little-endian
// bytes, the same layout used as the payload tail of the port protocol
// and the mobile FFI's vars_ptr.
func EncodeVars(v []float64) []byte {
	var buf bytes.Buffer
	for _, x := range v {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(x))
		buf.Write(b[:])
	}
	return buf.Bytes()
}

// DecodeVars decodes nVars × f64 little-endian bytes into a variable
// vector. It is the exact inverse of EncodeVars: decode(encode(v)) == v
// for every vector whose boolean-kind entries are already 0 or 1.
func DecodeVars(data []byte, nVars int) ([]float64, error) {
	if len(data) != nVars*8 {
		return nil, fmt.Errorf("%w: variable vector length %d != %d*8", errBadInput, len(data), nVars)
	}
	out := make([]float64, nVars)
	for i := 0; i < nVars; i++ {
		bits := binary.LittleEndian.Uint64(data[i*8 : i*8+8])
		out[i] = math.Float64frombits(bits)
	}
	return out, nil
}
