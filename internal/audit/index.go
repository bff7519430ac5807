package audit

import (
	"sort"
	"sync"
	"time"
)

// Index is an arena-plus-index-handles store:
// Audits live in one growable slice keyed by a monotonic sequence
// number (its position); secondary indexes hold seq numbers, never
// pointers into the arena, so the arena can reallocate freely under
// append. All writes flow through one *Index (the pipeline's single
// serializer task); reads take the read lock and return copies, so
// they never observe a half-written insert.
type Index struct {
	mu sync.RWMutex

	store []Audit // seq i -> store[i]
	byID  map[string]int

	byTrader      map[string][]int
	byContract    map[string][]int
	byProductGrp  map[string][]int
}

// New returns an empty Index.
func New() *Index {
	return &Index{
		byID:         make(map[string]int),
		byTrader:     make(map[string][]int),
		byContract:   make(map[string][]int),
		byProductGrp: make(map[string][]int),
	}
}

// Insert freezes a into the index and returns its sequence number.
// The stored copy is independent of a — later mutation of a's slices
// or maps by the caller has no effect on the index.
func (idx *Index) Insert(a Audit) int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	frozen := cloneAudit(a)
	seq := len(idx.store)
	idx.store = append(idx.store, frozen)

	idx.byID[frozen.ID] = seq
	trader := frozen.traderKey()
	idx.byTrader[trader] = append(idx.byTrader[trader], seq)
	idx.byProductGrp[frozen.ProductGroup] = append(idx.byProductGrp[frozen.ProductGroup], seq)
	for _, c := range frozen.Contracts {
		idx.byContract[c.ID] = append(idx.byContract[c.ID], seq)
	}

	return seq
}

func (idx *Index) collect(seqs []int) []Audit {
	out := make([]Audit, 0, len(seqs))
	for _, s := range seqs {
		out = append(out, cloneAudit(idx.store[s]))
	}
	return out
}

func ascByTime(a []Audit) {
	sort.SliceStable(a, func(i, j int) bool { return a[i].CreatedAt.Before(a[j].CreatedAt) })
}

// FindByID is the by-id point lookup.
func (idx *Index) FindByID(id string) (Audit, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	seq, ok := idx.byID[id]
	if !ok {
		return Audit{}, false
	}
	return cloneAudit(idx.store[seq]), true
}

// Recent returns the limit most recently inserted audits, newest
// first — the only query that returns descending order.
func (idx *Index) Recent(limit int) []Audit {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n := len(idx.store)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Audit, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, cloneAudit(idx.store[i]))
	}
	return out
}

// FindByContract returns every audit referencing contractID, ascending
// by timestamp.
func (idx *Index) FindByContract(contractID string) []Audit {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := idx.collect(idx.byContract[contractID])
	ascByTime(out)
	return out
}

// FindByTrader returns every audit for traderID, ascending by
// timestamp. Pass AutoTrader to retrieve automated runs.
func (idx *Index) FindByTrader(traderID string) []Audit {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := idx.collect(idx.byTrader[traderID])
	ascByTime(out)
	return out
}

// FindByTimeRange returns pg's audits with CreatedAt in [t1, t2],
// ascending by timestamp.
func (idx *Index) FindByTimeRange(pg string, t1, t2 time.Time) []Audit {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	all := idx.collect(idx.byProductGrp[pg])
	out := make([]Audit, 0, len(all))
	for _, a := range all {
		if !a.CreatedAt.Before(t1) && !a.CreatedAt.After(t2) {
			out = append(out, a)
		}
	}
	ascByTime(out)
	return out
}

// ProductGroupTimeline is FindByTimeRange's unbounded, limit-capped
// sibling — the product group timeline view.
func (idx *Index) ProductGroupTimeline(pg string, limit int) []Audit {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := idx.collect(idx.byProductGrp[pg])
	ascByTime(out)
	if limit > 0 && limit < len(out) {
		out = out[len(out)-limit:]
	}
	return out
}
