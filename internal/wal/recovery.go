package wal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tradedesk/internal/errs"
)

// loadManifest reads the per-directory checkpoint, if one exists. A
// missing manifest is not an error — it just means ok is false and the
// caller falls back to a full scan.
func loadManifest(dir string) (seq uint64, prevHash map[string][16]byte, ok bool, err error) {
	raw, err := os.ReadFile(filepath.Join(dir, manifestName))
	if os.IsNotExist(err) {
		return 0, map[string][16]byte{}, false, nil
	}
	if err != nil {
		return 0, nil, false, fmt.Errorf("%w: read manifest: %v", errs.ErrWALIO, err)
	}
	m, err := decodeManifest(raw)
	if err != nil {
		// A corrupt manifest is recoverable via full scan, not fatal.
		return 0, map[string][16]byte{}, false, nil
	}
	if m.PrevHash == nil {
		m.PrevHash = map[string][16]byte{}
	}
	return m.Seq, m.PrevHash, true, nil
}

// scanRecover rebuilds state from every *.wal file in dir when no
// manifest is available: seq becomes the maximum seq observed across
// all files, and each type's prev_hash becomes the MD5 of the highest-
// seq frame seen for that type.
func scanRecover(dir string) (uint64, map[string][16]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: scan %s: %v", errs.ErrWALIO, dir, err)
	}

	var maxSeq uint64
	lastSeq := map[string]uint64{}
	lastFrame := map[string][]byte{}

	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".wal") {
			continue
		}
		typ := typeFromFileName(ent.Name())
		path := filepath.Join(dir, ent.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: read %s: %v", errs.ErrWALIO, path, err)
		}
		frames, records, _, err := readFrames(raw)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: parse %s: %v", errs.ErrWALIO, path, err)
		}
		for i, rec := range records {
			if rec.Seq > maxSeq {
				maxSeq = rec.Seq
			}
			if rec.Seq > lastSeq[typ] {
				lastSeq[typ] = rec.Seq
				lastFrame[typ] = frames[i]
			}
		}
	}

	prevHash := make(map[string][16]byte, len(lastFrame))
	for typ, framed := range lastFrame {
		prevHash[typ] = frameHash(framed)
	}
	return maxSeq, prevHash, nil
}

// typeFromFileName recovers the entry type from "<type>_<YYYYMMDD>.wal".
// The date suffix is a fixed 8 digits, so splitting at the last
// underscore before the extension is unambiguous even if type itself
// contains underscores.
func typeFromFileName(name string) string {
	base := strings.TrimSuffix(name, ".wal")
	idx := strings.LastIndexByte(base, '_')
	if idx < 0 {
		return base
	}
	return base[:idx]
}
