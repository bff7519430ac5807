package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"tradedesk/internal/audit"
	"tradedesk/internal/errs"
	"tradedesk/internal/frame"
	"tradedesk/internal/logger"
	"tradedesk/internal/metrics"
	"tradedesk/internal/wal"
)

// Runner is the solve pipeline's single entry point. Concurrency is a
// mix: many runs execute in parallel up to Capacity, each driving
// its own LP Core/Monte Carlo call single-threaded, while the Audit
// Index and WAL are each fed through one owning *Runner — the
// "serializer task per subsystem" design note is realized here by
// audit.Index's and wal.WAL's own internal locking, which every run
// shares without a separate goroutine of its own.
type Runner struct {
	frames map[string]*frame.Registry
	wal    *wal.WAL
	index  *audit.Index

	freshness ContractFreshnessOracle
	ingest    IngestCoordinator
	framer    Framer

	sem     *semaphore.Weighted
	limiter *rate.Limiter

	mu        sync.RWMutex
	listeners []chan Event

	externalTimeout time.Duration
}

// Config configures a Runner at construction.
type Config struct {
	Frames          map[string]*frame.Registry
	WAL             *wal.WAL
	Index           *audit.Index
	Freshness       ContractFreshnessOracle
	Ingest          IngestCoordinator
	Framer          Framer
	Capacity        int64         // max concurrently accepted runs
	ExternalRate    float64       // external-call rate limit in calls/sec
	ExternalBurst   int
	ExternalTimeout time.Duration // per-call deadline for freshness/ingest/framing
}

// NewRunner builds a Runner from cfg, filling in sane fallbacks for
// zero-valued tuning parameters.
func NewRunner(cfg Config) *Runner {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 16
	}
	if cfg.ExternalRate <= 0 {
		cfg.ExternalRate = 5
	}
	if cfg.ExternalBurst <= 0 {
		cfg.ExternalBurst = 5
	}
	if cfg.ExternalTimeout <= 0 {
		cfg.ExternalTimeout = 5 * time.Second
	}
	return &Runner{
		frames:          cfg.Frames,
		wal:             cfg.WAL,
		index:           cfg.Index,
		freshness:       cfg.Freshness,
		ingest:          cfg.Ingest,
		framer:          cfg.Framer,
		sem:             semaphore.NewWeighted(cfg.Capacity),
		limiter:         rate.NewLimiter(rate.Limit(cfg.ExternalRate), cfg.ExternalBurst),
		externalTimeout: cfg.ExternalTimeout,
	}
}

// Subscribe registers a channel that receives every Event this Runner
// emits from here on. The caller owns draining it; a full channel's
// send is dropped rather than blocking the run that produced it.
func (r *Runner) Subscribe() <-chan Event {
	ch := make(chan Event, 64)
	r.mu.Lock()
	r.listeners = append(r.listeners, ch)
	r.mu.Unlock()
	return ch
}

func (r *Runner) emit(ev Event) {
	metrics.ObservePhase(string(ev.State))
	logger.Phase(ev.RunID, string(ev.State), ev.Message)

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ch := range r.listeners {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Submit accepts one run request and blocks until either a worker slot
// frees up or ctx is cancelled: new run acceptance back-pressures
// rather than dropping events.
// A cancelled ctx before the run starts returns ErrCancelled without
// writing an audit (no work was ever attempted).
func (r *Runner) Submit(ctx context.Context, req Request) (audit.Audit, error) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return audit.Audit{}, fmt.Errorf("%w: run queue saturated: %v", errs.ErrCancelled, err)
	}
	defer r.sem.Release(1)

	return r.run(ctx, req)
}
