package perturb

import (
	"math"

	"tradedesk/internal/descriptor"
)

// clamp restricts x to [lo, hi]. If lo > hi (a malformed spec) it
// simply returns lo, the safer of the two malformed-input outcomes.
func clamp(x, lo, hi float64) float64 {
	if lo > hi {
		return lo
	}
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// SeedFromCenter derives the two 64-bit seed chunks a Monte Carlo run
// hands to New from its center vector: the same center and
// descriptor must reproduce identical scenario sequences. Chunk A
// folds the even-indexed entries' bit patterns together; chunk B folds
// the odd-indexed ones, so the two chunks are sensitive to different
// halves of the vector.
func SeedFromCenter(center []float64) (uint64, uint64) {
	var a, b uint64
	for i, v := range center {
		bits := math.Float64bits(v)
		if i%2 == 0 {
			a = a*1099511628211 ^ bits // FNV-style odd multiplier, just for mixing
		} else {
			b = b*1099511628211 ^ bits
		}
	}
	return a, b
}

// Engine holds one Monte Carlo run's exclusive PRNG instance. It is
// never shared across runs or goroutines.
type Engine struct {
	rng *rngState
}

// New creates a perturbation engine seeded from the given center
// vector.
func New(center []float64) *Engine {
	a, b := SeedFromCenter(center)
	return &Engine{rng: newRNG(a, b)}
}

// Perturb produces one new scenario vector from center under the
// descriptor's per-variable perturbation specs: an independent
// jitter/flip pass, then a correlated adjustment pass over the same
// PRNG. The returned slice is always a fresh allocation;
// center is never mutated.
func (e *Engine) Perturb(center []float64, d *descriptor.ModelDescriptor) []float64 {
	x := make([]float64, len(center))
	delta := make([]float64, len(center))

	// Pass 1: independent jitter or boolean flip.
	for i, spec := range d.Perturbations {
		switch {
		case spec.Sigma > 0:
			sample := center[i] + e.rng.normal()*spec.Sigma
			x[i] = clamp(sample, spec.Lo, spec.Hi)
		case spec.Sigma == 0 && spec.Lo > 0:
			p := spec.Lo
			if p > 1 {
				p = 1
			}
			if e.rng.uniform01() < p {
				x[i] = 1 - center[i]
			} else {
				x[i] = center[i]
			}
		default:
			x[i] = center[i]
		}
		delta[i] = x[i] - center[i]
	}

	// Pass 2: correlated adjustment, using pass-1 deltas exclusively.
	for i, spec := range d.Perturbations {
		if spec.Sigma <= 0 || len(spec.Correlations) == 0 {
			continue
		}
		adj := 0.0
		for _, link := range spec.Correlations {
			adj += link.Coefficient * delta[int(link.VarIdx)]
		}
		x[i] = clamp(x[i]+adj, spec.Lo, spec.Hi)
	}

	return x
}
