package filter

import (
	"math"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// Guard drops non-finite inputs before they reach the wrapped filter.
// A rejected input returns the last accepted output unchanged, or the wrapped
// filter's prior when nothing has been accepted yet.
//
// Unguarded filters let NaN and Inf propagate into their state; Guard is the
// opt-in alternative.
type Guard struct {
	f        Filter
	last     float64
	rejected atomic.Uint64
}

// NewGuard wraps f.
func NewGuard(f Filter) *Guard {
	return &Guard{f: f, last: estimate(f)}
}

// Filter forwards finite values to the wrapped filter.
func (g *Guard) Filter(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		n := g.rejected.Add(1)
		log.Debugf("filter: rejected non-finite input %v (%d so far)", v, n)
		return g.last
	}
	g.last = g.f.Filter(v)
	return g.last
}

// Reset resets the wrapped filter. The rejection counter is kept.
func (g *Guard) Reset() {
	g.f.Reset()
	g.last = estimate(g.f)
}

// Rejected returns the number of inputs dropped so far.
func (g *Guard) Rejected() uint64 {
	return g.rejected.Load()
}

// Unwrap returns the wrapped filter.
func (g *Guard) Unwrap() Filter {
	return g.f
}
