package port

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"tradedesk/internal/descriptor"
	"tradedesk/internal/errs"
)

// maxFrameBytes bounds a single frame's length prefix against a
// corrupt or hostile peer; generous relative to the 64-variable/
// 16-route/32-constraint descriptor maxima.
const maxFrameBytes = 16 << 20

// payloadWriter accumulates one frame's payload in the protocol's
// little-endian field order, mirroring descriptor's own wireWriter.
type payloadWriter struct{ buf bytes.Buffer }

func (w *payloadWriter) u8(v uint8)   { w.buf.WriteByte(v) }
func (w *payloadWriter) u16(v uint16) { var b [2]byte; binary.LittleEndian.PutUint16(b[:], v); w.buf.Write(b[:]) }
func (w *payloadWriter) u32(v uint32) { var b [4]byte; binary.LittleEndian.PutUint32(b[:], v); w.buf.Write(b[:]) }
func (w *payloadWriter) f64(v float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	w.buf.Write(b[:])
}
func (w *payloadWriter) f64s(vs []float64) {
	for _, v := range vs {
		w.f64(v)
	}
}
func (w *payloadWriter) bytes(b []byte) { w.buf.Write(b) }

type payloadReader struct {
	buf []byte
	pos int
}

func (r *payloadReader) need(n int) error {
	if r.pos+n > len(r.buf) {
		return fmt.Errorf("%w: port frame truncated (need %d bytes at offset %d, have %d)",
			errs.ErrBadInput, n, r.pos, len(r.buf))
	}
	return nil
}

func (r *payloadReader) u8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *payloadReader) u16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *payloadReader) u32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *payloadReader) f64() (float64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := math.Float64frombits(binary.LittleEndian.Uint64(r.buf[r.pos:]))
	r.pos += 8
	return v, nil
}

func (r *payloadReader) f64s(n int) ([]float64, error) {
	out := make([]float64, n)
	for i := range out {
		v, err := r.f64()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (r *payloadReader) rest() []byte {
	return r.buf[r.pos:]
}

// EncodeSolveRequest builds command 1's frame payload: command byte,
// descriptor bytes, then the variable vector.
func EncodeSolveRequest(req SolveRequest) []byte {
	var w payloadWriter
	w.u8(uint8(CommandSolve))
	w.bytes(req.DescriptorBytes)
	w.f64s(req.Vars)
	return w.buf.Bytes()
}

// EncodeMonteCarloRequest builds command 2's frame payload: command
// byte, n_scenarios, descriptor bytes, then the center vector.
func EncodeMonteCarloRequest(req MonteCarloRequest) []byte {
	var w payloadWriter
	w.u8(uint8(CommandMonteCarlo))
	w.u32(req.NScenarios)
	w.bytes(req.DescriptorBytes)
	w.f64s(req.Center)
	return w.buf.Bytes()
}

// DecodeRequest reads the command byte off frame and dispatches to the
// matching request decode, returning whichever of (*SolveRequest,
// *MonteCarloRequest) applies.
func DecodeRequest(frame []byte) (Command, *SolveRequest, *MonteCarloRequest, error) {
	r := &payloadReader{buf: frame}
	cmdByte, err := r.u8()
	if err != nil {
		return 0, nil, nil, err
	}
	cmd := Command(cmdByte)
	switch cmd {
	case CommandSolve:
		d, n, err := decodeDescriptorPrefix(r.rest())
		if err != nil {
			return cmd, nil, nil, err
		}
		vars, err := descriptor.DecodeVars(r.rest()[n:], d.NVars)
		if err != nil {
			return cmd, nil, nil, err
		}
		return cmd, &SolveRequest{DescriptorBytes: r.rest()[:n], Vars: vars}, nil, nil
	case CommandMonteCarlo:
		n, err := r.u32()
		if err != nil {
			return cmd, nil, nil, err
		}
		d, consumed, err := decodeDescriptorPrefix(r.rest())
		if err != nil {
			return cmd, nil, nil, err
		}
		center, err := descriptor.DecodeVars(r.rest()[consumed:], d.NVars)
		if err != nil {
			return cmd, nil, nil, err
		}
		return cmd, nil, &MonteCarloRequest{NScenarios: n, DescriptorBytes: r.rest()[:consumed], Center: center}, nil
	default:
		return cmd, nil, nil, fmt.Errorf("%w: unknown port command %d", errs.ErrBadInput, cmdByte)
	}
}

// decodeDescriptorPrefix decodes a descriptor.ModelDescriptor from the
// start of data and reports how many bytes it consumed, so the caller
// can locate the variable vector that follows. descriptor.Decode
// rejects trailing bytes, so the boundary comes from the descriptor's
// leading n_vars header: data is the descriptor followed by exactly
// n_vars f64 values, and the descriptor is everything before them.
func decodeDescriptorPrefix(data []byte) (*descriptor.ModelDescriptor, int, error) {
	if len(data) < 2 {
		return nil, 0, fmt.Errorf("%w: port frame truncated before descriptor header", errs.ErrBadInput)
	}
	n := len(data) - int(binary.LittleEndian.Uint16(data))*8
	if n < 0 {
		return nil, 0, fmt.Errorf("%w: port frame too short for its variable vector", errs.ErrBadInput)
	}
	d, err := descriptor.Decode(data[:n])
	if err != nil {
		return nil, 0, err
	}
	return d, n, nil
}

// EncodeSolveResponse builds command 1's response payload.
func EncodeSolveResponse(resp SolveResponse) []byte {
	var w payloadWriter
	w.u8(uint8(resp.Status))
	w.u8(resp.NRoutes)
	w.u8(resp.NConstraints)
	w.f64(resp.Profit)
	w.f64(resp.Tons)
	w.f64(resp.Cost)
	w.f64(resp.ROI)
	w.f64s(resp.RouteTons)
	w.f64s(resp.RouteProfits)
	w.f64s(resp.Margins)
	w.f64s(resp.ShadowPrices)
	return w.buf.Bytes()
}

// DecodeSolveResponse parses a command 1 response frame.
func DecodeSolveResponse(frame []byte) (*SolveResponse, error) {
	r := &payloadReader{buf: frame}
	status, err := r.u8()
	if err != nil {
		return nil, err
	}
	nRoutes, err := r.u8()
	if err != nil {
		return nil, err
	}
	nCons, err := r.u8()
	if err != nil {
		return nil, err
	}
	resp := &SolveResponse{Status: Status(status), NRoutes: nRoutes, NConstraints: nCons}
	if resp.Profit, err = r.f64(); err != nil {
		return nil, err
	}
	if resp.Tons, err = r.f64(); err != nil {
		return nil, err
	}
	if resp.Cost, err = r.f64(); err != nil {
		return nil, err
	}
	if resp.ROI, err = r.f64(); err != nil {
		return nil, err
	}
	if resp.RouteTons, err = r.f64s(int(nRoutes)); err != nil {
		return nil, err
	}
	if resp.RouteProfits, err = r.f64s(int(nRoutes)); err != nil {
		return nil, err
	}
	if resp.Margins, err = r.f64s(int(nRoutes)); err != nil {
		return nil, err
	}
	if resp.ShadowPrices, err = r.f64s(int(nCons)); err != nil {
		return nil, err
	}
	return resp, nil
}

// EncodeMonteCarloResponse builds command 2's response payload.
func EncodeMonteCarloResponse(resp MonteCarloResponse) []byte {
	var w payloadWriter
	w.u8(uint8(resp.Status))
	w.u16(resp.NVars)
	w.u32(resp.NScenarios)
	w.u32(resp.NFeasible)
	w.u32(resp.NInfeasible)
	w.f64(resp.Mean)
	w.f64(resp.StdDev)
	w.f64(resp.P5)
	w.f64(resp.P25)
	w.f64(resp.P50)
	w.f64(resp.P75)
	w.f64(resp.P95)
	w.f64(resp.Min)
	w.f64(resp.Max)
	w.f64s(resp.Sensitivity)
	return w.buf.Bytes()
}

// DecodeMonteCarloResponse parses a command 2 response frame.
func DecodeMonteCarloResponse(frame []byte) (*MonteCarloResponse, error) {
	r := &payloadReader{buf: frame}
	status, err := r.u8()
	if err != nil {
		return nil, err
	}
	resp := &MonteCarloResponse{Status: Status(status)}
	if resp.NVars, err = r.u16(); err != nil {
		return nil, err
	}
	if resp.NScenarios, err = r.u32(); err != nil {
		return nil, err
	}
	if resp.NFeasible, err = r.u32(); err != nil {
		return nil, err
	}
	if resp.NInfeasible, err = r.u32(); err != nil {
		return nil, err
	}
	for _, dst := range []*float64{&resp.Mean, &resp.StdDev, &resp.P5, &resp.P25, &resp.P50, &resp.P75, &resp.P95, &resp.Min, &resp.Max} {
		if *dst, err = r.f64(); err != nil {
			return nil, err
		}
	}
	if resp.Sensitivity, err = r.f64s(int(resp.NVars)); err != nil {
		return nil, err
	}
	return resp, nil
}

// WriteFrame writes one u32-big-endian-length-prefixed frame to w.
func WriteFrame(w io.Writer, payload []byte) error {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame reads one length-prefixed frame from r: the fixed-size
// length header first, then exactly that many payload bytes.
func ReadFrame(r io.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n > maxFrameBytes {
		return nil, fmt.Errorf("%w: port frame length %d exceeds max %d", errs.ErrBadInput, n, maxFrameBytes)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}
