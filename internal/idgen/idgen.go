// Package idgen mints opaque, append-only-safe identifiers for runs,
// audits, and scenarios. Every id is a kind prefix, "_", and a UUIDv4
// string; generation never blocks and never reuses a prior value.
package idgen

import "github.com/google/uuid"

// Kind tags the namespace an id was minted for, so log lines and
// audit fields can carry a short, human-legible prefix without any
// caller having to format one by hand.
type Kind string

const (
	KindRun      Kind = "run"
	KindAudit    Kind = "audit"
	KindScenario Kind = "scn"
)

// New mints a fresh opaque identifier for the given kind, formatted as
// "<kind>_<uuid>". The kind prefix is cosmetic only — callers must treat
// the whole string as opaque and must not parse it.
func New(kind Kind) string {
	return string(kind) + "_" + uuid.New().String()
}

// NewRunID mints an opaque pipeline run identifier.
func NewRunID() string { return New(KindRun) }

// NewAuditID mints an opaque audit identifier.
func NewAuditID() string { return New(KindAudit) }
