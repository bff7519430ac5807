// Package wal implements the append-only, per-type, hash-chained
// Snapshot WAL: the durable record of everything the
// solve pipeline observed and decided, read back by internal/audit and
// by cmd/enginectl's verify/replay subcommands.
package wal

import "time"

// Record is one logical entry in the log: a pipeline event, a model
// descriptor snapshot, or an audit payload, tagged by Type and chained
// to the previous entry of the same Type via PrevHash.
type Record struct {
	Seq      uint64
	Ts       time.Time
	Type     string
	Data     []byte
	PrevHash [16]byte
}

// manifest is the periodic checkpoint written every checkpointEvery
// appends, letting startup recovery skip a full directory scan in the
// common case.
type manifest struct {
	Seq      uint64
	PrevHash map[string][16]byte
	SavedAt  time.Time
}

// checkpointEvery is the append count between manifest flushes.
const checkpointEvery = 50

// manifestName is the fixed file name inside a WAL directory.
const manifestName = "manifest.etf"
