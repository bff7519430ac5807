package wal

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"tradedesk/internal/errs"
	"tradedesk/internal/logger"
	"tradedesk/internal/metrics"
)

// WAL is the single-writer append-only snapshot log. All
// appends flow through one *WAL, serialized by mu — the pipeline's
// "one serializer task per subsystem" ownership rule is enforced
// here by the mutex rather than by a dedicated goroutine, since the
// pipeline's concurrent runs each call Append directly.
type WAL struct {
	mu       sync.Mutex
	dir      string
	seq      uint64
	prevHash map[string][16]byte
	files    map[string]*openFile
	appends  int
}

type openFile struct {
	date string // YYYYMMDD, the rotation key
	f    *os.File
}

// Open recovers a WAL directory's state (manifest if present, else a
// full directory scan) and readies it for
// appends.
func Open(dir string) (*WAL, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create wal dir %s: %v", errs.ErrWALIO, dir, err)
	}

	seq, prevHash, fromManifest, err := loadManifest(dir)
	if err != nil {
		return nil, err
	}
	if !fromManifest {
		seq, prevHash, err = scanRecover(dir)
		if err != nil {
			return nil, err
		}
		logger.Warn("WAL", fmt.Sprintf("no manifest in %s, recovered seq=%d by full scan", dir, seq))
	} else {
		logger.Success("WAL", fmt.Sprintf("recovered seq=%d from manifest", seq))
	}

	return &WAL{
		dir:      dir,
		seq:      seq,
		prevHash: prevHash,
		files:    make(map[string]*openFile),
	}, nil
}

// Close flushes a final manifest and closes every open file handle.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var firstErr error
	for _, of := range w.files {
		if err := of.f.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%w: close %s: %v", errs.ErrWALIO, of.f.Name(), err)
		}
	}
	if err := w.flushManifestLocked(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func fileName(typ, date string) string {
	return fmt.Sprintf("%s_%s.wal", typ, date)
}

func (w *WAL) fileFor(typ string, now time.Time) (*os.File, error) {
	date := now.UTC().Format("20060102")
	if of, ok := w.files[typ]; ok {
		if of.date == date {
			return of.f, nil
		}
		of.f.Close()
		delete(w.files, typ)
	}

	path := filepath.Join(w.dir, fileName(typ, date))
	if err := truncatePartialTail(path); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", errs.ErrWALIO, path, err)
	}
	w.files[typ] = &openFile{date: date, f: f}
	return f, nil
}

// truncatePartialTail drops a trailing short frame a crash may have
// left mid-write, so the next Append lands immediately after the last
// complete frame rather than after garbage bytes. A process that never
// reopens a file for append (reads only) never calls this — read_file
// and verify_chain already tolerate the trailing partial frame in
// place.
func truncatePartialTail(path string) error {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", errs.ErrWALIO, path, err)
	}
	validLen, _, _, truncated, err := readFramesValid(raw)
	if err != nil {
		return err
	}
	if !truncated {
		return nil
	}
	logger.Warn("WAL", fmt.Sprintf("%s has a partial trailing frame, truncating to %d bytes", path, validLen))
	if err := os.Truncate(path, int64(validLen)); err != nil {
		return fmt.Errorf("%w: truncate %s: %v", errs.ErrWALIO, path, err)
	}
	return nil
}

// Append writes one entry of the given type, chained to the previous
// entry of the same type, and fsyncs before returning. On a write or
// fsync failure it increments the wal_io metric and returns a wrapped
// ErrWALIO. The caller does not block on this: the in-memory audit
// index write proceeds regardless.
func (w *WAL) Append(typ string, data []byte) (Record, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now().UTC()
	f, err := w.fileFor(typ, now)
	if err != nil {
		metrics.IncWALIOError(typ)
		return Record{}, err
	}

	rec := Record{
		Seq:      w.seq + 1,
		Ts:       now,
		Type:     typ,
		Data:     data,
		PrevHash: w.prevHash[typ],
	}

	payload, err := encodeRecord(rec)
	if err != nil {
		metrics.IncWALIOError(typ)
		return Record{}, err
	}
	framed, err := writeFrame(f, payload)
	if err != nil {
		metrics.IncWALIOError(typ)
		return Record{}, err
	}
	if err := f.Sync(); err != nil {
		metrics.IncWALIOError(typ)
		return Record{}, fmt.Errorf("%w: fsync %s: %v", errs.ErrWALIO, f.Name(), err)
	}

	w.seq = rec.Seq
	w.prevHash[typ] = frameHash(framed)
	w.appends++
	if w.appends%checkpointEvery == 0 {
		if err := w.flushManifestLocked(); err != nil {
			logger.Warn("WAL", fmt.Sprintf("manifest flush failed at seq=%d: %v", w.seq, err))
		}
	}

	return rec, nil
}

func (w *WAL) flushManifestLocked() error {
	m := manifest{
		Seq:      w.seq,
		PrevHash: make(map[string][16]byte, len(w.prevHash)),
		SavedAt:  time.Now().UTC(),
	}
	for k, v := range w.prevHash {
		m.PrevHash[k] = v
	}
	raw, err := encodeManifest(m)
	if err != nil {
		return err
	}

	path := filepath.Join(w.dir, manifestName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("%w: write manifest tmp: %v", errs.ErrWALIO, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("%w: rename manifest: %v", errs.ErrWALIO, err)
	}
	return nil
}
