package wal

import (
	"bytes"
	"crypto/md5"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"

	"tradedesk/internal/errs"
)

// encodeRecord canonically serializes a Record's payload with gob. gob
// is deterministic for a fixed concrete type encoded through a fresh
// encoder, which is all encode/decode here ever does.
func encodeRecord(r Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(r); err != nil {
		return nil, fmt.Errorf("%w: encode record: %v", errs.ErrWALIO, err)
	}
	return buf.Bytes(), nil
}

func decodeRecord(payload []byte) (Record, error) {
	var r Record
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&r); err != nil {
		return Record{}, fmt.Errorf("%w: decode record: %v", errs.ErrWALIO, err)
	}
	return r, nil
}

// frameHash is MD5 of the fully framed entry (size prefix +
// payload); PrevHash always chains over whole frames, never bare
// payloads.
func frameHash(framed []byte) [16]byte {
	return md5.Sum(framed)
}

// writeFrame writes one size-prefixed frame (`size:u32 big-endian |
// payload`) and returns the bytes written, for hash-chaining.
func writeFrame(w io.Writer, payload []byte) ([]byte, error) {
	framed := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(framed[:4], uint32(len(payload)))
	copy(framed[4:], payload)
	if _, err := w.Write(framed); err != nil {
		return nil, fmt.Errorf("%w: write frame: %v", errs.ErrWALIO, err)
	}
	return framed, nil
}

// readFrames parses every complete frame in raw, tolerantly: a
// trailing short prefix (a partial write before a crash) is discarded
// rather than treated as an error. It
// returns the parsed records plus whether a short trailing frame was
// discarded.
func readFrames(raw []byte) (frames [][]byte, records []Record, truncated bool, err error) {
	_, frames, records, truncated, err = readFramesValid(raw)
	return frames, records, truncated, err
}

// splitFrames walks raw's size prefixes without decoding any payload,
// returning each complete frame (size prefix included), the byte
// offset past the last complete frame, and whether a short trailing
// frame was left behind.
func splitFrames(raw []byte) (frames [][]byte, validLen int, truncated bool) {
	off := 0
	for off < len(raw) {
		if off+4 > len(raw) {
			truncated = true
			break
		}
		size := binary.BigEndian.Uint32(raw[off : off+4])
		end := off + 4 + int(size)
		if end > len(raw) {
			truncated = true
			break
		}
		frames = append(frames, raw[off:end])
		off = end
	}
	return frames, off, truncated
}

// readFramesValid is readFrames plus the byte offset of the last
// complete frame — the point a writer should truncate to before
// resuming appends after a crash mid-frame.
func readFramesValid(raw []byte) (validLen int, frames [][]byte, records []Record, truncated bool, err error) {
	frames, validLen, truncated = splitFrames(raw)
	for _, framed := range frames {
		rec, derr := decodeRecord(framed[4:])
		if derr != nil {
			return 0, nil, nil, false, derr
		}
		records = append(records, rec)
	}
	return validLen, frames, records, truncated, nil
}

func encodeManifest(m manifest) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		return nil, fmt.Errorf("%w: encode manifest: %v", errs.ErrWALIO, err)
	}
	return buf.Bytes(), nil
}

func decodeManifest(raw []byte) (manifest, error) {
	var m manifest
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&m); err != nil {
		return manifest{}, fmt.Errorf("%w: decode manifest: %v", errs.ErrWALIO, err)
	}
	return m, nil
}
