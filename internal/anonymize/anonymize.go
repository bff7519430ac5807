// Package anonymize provides substitution tables for scrubbing
// counterparty-identifying fields (trader names, contract
// counterparties, free-text trader notes) out of audit snapshots bound
// for wider distribution, without touching the canonical WAL record.
package anonymize

import (
	"fmt"
	"sync"
)

// Table is a stable, append-only mapping from real identifiers to
// opaque aliases. Once an identifier has been assigned an alias, the
// same alias is returned for the lifetime of the Table — callers must
// not assume aliases are stable across process restarts unless the
// Table is seeded from a saved snapshot via Load.
type Table struct {
	mu      sync.Mutex
	prefix  string
	aliases map[string]string
	next    int
}

// NewTable creates an empty substitution table. prefix is prepended to
// every generated alias (e.g. "trader" yields "trader_1", "trader_2").
func NewTable(prefix string) *Table {
	return &Table{prefix: prefix, aliases: make(map[string]string)}
}

// Alias returns the stable alias for id, minting one on first use.
// The empty string aliases to itself — there is nothing to anonymize
// about an absent identifier.
func (t *Table) Alias(id string) string {
	if id == "" {
		return ""
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if a, ok := t.aliases[id]; ok {
		return a
	}
	t.next++
	a := fmt.Sprintf("%s_%d", t.prefix, t.next)
	t.aliases[id] = a
	return a
}

// Snapshot returns a copy of the current id->alias mapping, suitable
// for persisting alongside an audit so a later re-identification (by an
// authorized party) is possible without re-deriving the table.
func (t *Table) Snapshot() map[string]string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]string, len(t.aliases))
	for k, v := range t.aliases {
		out[k] = v
	}
	return out
}

// Load seeds the table from a previously captured snapshot, restoring
// the high-water mark for subsequently minted aliases so no alias is
// ever reused for a different id.
func Load(prefix string, snapshot map[string]string) *Table {
	t := NewTable(prefix)
	for id, alias := range snapshot {
		t.aliases[id] = alias
		t.next++
	}
	return t
}
