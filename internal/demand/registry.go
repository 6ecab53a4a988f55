// Package demand tracks the per-flight demand index and drifts it over time.
package demand

import (
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/fairyhunter13/flight-pricing-engine/internal/model"
	"github.com/fairyhunter13/flight-pricing-engine/internal/pricing"
)

type demandState struct {
	index     float64
	updatedAt time.Time
}

// Registry maps flight keys to their demand index. Entries are created on
// first reference and never removed.
type Registry struct {
	mu      sync.Mutex
	m       map[string]demandState
	rnd     *rand.Rand
	now     func() time.Time
	seedMin float64
	seedMax float64
}

// Option configures a Registry.
type Option func(*Registry)

// WithRand sets the random source used for seeding and drift.
func WithRand(r *rand.Rand) Option {
	return func(reg *Registry) { reg.rnd = r }
}

// WithClock sets the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(reg *Registry) { reg.now = now }
}

// WithSeedRange sets the range new entries are seeded from.
func WithSeedRange(lo, hi float64) Option {
	return func(reg *Registry) { reg.seedMin, reg.seedMax = lo, hi }
}

// NewRegistry returns an empty registry seeding from [0.2, 0.8] by default.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		m:       make(map[string]demandState),
		rnd:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:     time.Now,
		seedMin: 0.2,
		seedMax: 0.8,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// uniform must be called with mu held.
func (r *Registry) uniform(lo, hi float64) float64 {
	return lo + r.rnd.Float64()*(hi-lo)
}

// Resolve returns the demand index for key. A non-nil override is clamped,
// stored and returned whatever the previous state. Without an override an
// unknown key is seeded at random and a known key is returned unchanged.
func (r *Registry) Resolve(key string, override *float64) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if override != nil {
		v := pricing.Clamp(*override)
		r.m[key] = demandState{index: v, updatedAt: r.now().UTC()}
		return v
	}
	if st, ok := r.m[key]; ok {
		return st.index
	}
	v := pricing.Clamp(r.uniform(r.seedMin, r.seedMax))
	r.m[key] = demandState{index: v, updatedAt: r.now().UTC()}
	return v
}

// Get returns the stored demand index for key without seeding.
func (r *Registry) Get(key string) (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.m[key]
	return st.index, ok
}

// Snapshot returns every entry ordered by flight key.
func (r *Registry) Snapshot() []model.DemandEntry {
	r.mu.Lock()
	out := make([]model.DemandEntry, 0, len(r.m))
	for k, st := range r.m {
		out = append(out, model.DemandEntry{FlightID: k, DemandIndex: st.index, UpdatedAt: st.updatedAt})
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].FlightID < out[j].FlightID })
	return out
}

// DriftAll adds an independent uniform delta in [-maxDelta, maxDelta] to every
// entry present when the call starts, clamps to [0,1] and refreshes the
// timestamp. It returns the number of entries drifted.
func (r *Registry) DriftAll(maxDelta float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	ts := r.now().UTC()
	for k, st := range r.m {
		st.index = pricing.Clamp(st.index + r.uniform(-maxDelta, maxDelta))
		st.updatedAt = ts
		r.m[k] = st
	}
	return len(r.m)
}

// Len returns the number of tracked flight keys.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.m)
}
