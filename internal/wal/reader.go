package wal

import (
	"fmt"
	"os"
	"sort"
	"time"

	"tradedesk/internal/errs"
	"tradedesk/internal/logger"
)

// ReadFile parses one WAL file tolerantly: a trailing short prefix
// left by a partial write before a crash is discarded with a warning
// rather than treated as an error.
func ReadFile(path string) ([]Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", errs.ErrWALIO, path, err)
	}
	_, records, truncated, err := readFrames(raw)
	if err != nil {
		return nil, err
	}
	if truncated {
		logger.Warn("WAL", fmt.Sprintf("%s ends with a partial frame, discarded", path))
	}
	return records, nil
}

// ReadRange filters one file's entries to those with Ts in [from, to].
func ReadRange(path string, from, to time.Time) ([]Record, error) {
	all, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(all))
	for _, r := range all {
		if !r.Ts.Before(from) && !r.Ts.After(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

// BrokenAt describes where a hash chain first diverges.
type BrokenAt struct {
	Seq      uint64
	Expected [16]byte
	Got      [16]byte
}

// VerifyChain checks one file's hash chain: the first entry's
// PrevHash must be zero, and each subsequent entry's PrevHash must
// equal the MD5 of the immediately prior frame. A frame whose payload
// no longer decodes is itself a break — whatever bytes sit there are
// not the entry the chain promised — reported at the seq the chain
// was expecting next.
func VerifyChain(path string) (ok bool, broken *BrokenAt, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return false, nil, fmt.Errorf("%w: read %s: %v", errs.ErrWALIO, path, err)
	}
	frames, _, _ := splitFrames(raw)
	var prevSeq uint64
	for i, framed := range frames {
		var want [16]byte
		if i > 0 {
			want = frameHash(frames[i-1])
		}
		rec, derr := decodeRecord(framed[4:])
		if derr != nil {
			return false, &BrokenAt{Seq: prevSeq + 1, Expected: want}, nil
		}
		if rec.PrevHash != want {
			return false, &BrokenAt{Seq: rec.Seq, Expected: want, Got: rec.PrevHash}, nil
		}
		prevSeq = rec.Seq
	}
	return true, nil, nil
}

// byTsThenSeq orders records the way replay and audit queries
// require: timestamp first, sequence number breaks ties.
func byTsThenSeq(records []Record) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].Ts.Equal(records[j].Ts) {
			return records[i].Ts.Before(records[j].Ts)
		}
		return records[i].Seq < records[j].Seq
	})
}
