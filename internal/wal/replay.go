package wal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"tradedesk/internal/errs"
)

// Applier consumes one replayed record. Implementations are expected
// to be idempotent (insert-if-absent), since Replay makes no promise
// against being invoked twice with the same record.
type Applier func(Record) error

// Replay streams every record in dir whose type is in types (all
// types if types is empty) and whose timestamp falls in [since, upTo],
// in (timestamp, seq) order, handing each to applier in turn.
func Replay(dir string, since, upTo time.Time, types []string, applier Applier) error {
	wanted := make(map[string]bool, len(types))
	for _, t := range types {
		wanted[t] = true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("%w: scan %s: %v", errs.ErrWALIO, dir, err)
	}

	var paths []string
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".wal") {
			continue
		}
		if typ := typeFromFileName(ent.Name()); len(wanted) > 0 && !wanted[typ] {
			continue
		}
		paths = append(paths, filepath.Join(dir, ent.Name()))
	}

	// Each daily file is read independently, so fanning the reads out
	// concurrently shortens replay of a directory with many rotated
	// files; ReadFile only touches its own path, and the merge below
	// re-establishes a single deterministic order regardless of which
	// goroutine finishes first.
	perFile := make([][]Record, len(paths))
	var g errgroup.Group
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			recs, err := ReadFile(path)
			if err != nil {
				return err
			}
			perFile[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var records []Record
	for _, recs := range perFile {
		for _, r := range recs {
			if !r.Ts.Before(since) && !r.Ts.After(upTo) {
				records = append(records, r)
			}
		}
	}

	byTsThenSeq(records)
	for _, r := range records {
		if err := applier(r); err != nil {
			return fmt.Errorf("apply record seq=%d type=%s: %w", r.Seq, r.Type, err)
		}
	}
	return nil
}
