// Package filter implements the per-sensor noise filters applied to calibrated
// readings: a recursive single-state estimator and a weighted window averager.
//
// Filters are not safe for concurrent use. Wrap an instance with NewLocked when
// more than one goroutine can reach it.
package filter

// Filter smooths a stream of scalar measurements.
type Filter interface {
	// Filter consumes a measurement and returns the smoothed value.
	Filter(v float64) float64
	// Reset restores the state the filter was constructed with.
	Reset()
}

// Ensure filters implement Filter.
var (
	_ Filter = (*Recursive)(nil)
	_ Filter = (*Window)(nil)
	_ Filter = (*Guard)(nil)
	_ Filter = (*Locked)(nil)
)

type wrapper interface {
	Unwrap() Filter
}

// estimator is implemented by filters that can report their current output
// without consuming a measurement.
type estimator interface {
	Estimate() float64
}

// estimate returns the current output of the innermost filter of f, or 0 when
// it cannot report one.
func estimate(f Filter) float64 {
	if e, ok := Innermost(f).(estimator); ok {
		return e.Estimate()
	}
	return 0
}

// Innermost strips Guard and Locked layers and returns the filter doing the work.
func Innermost(f Filter) Filter {
	for {
		w, ok := f.(wrapper)
		if !ok {
			return f
		}
		f = w.Unwrap()
	}
}

// Inspect calls fn with the innermost filter of f. When f is Locked, fn runs
// while the lock is held.
func Inspect(f Filter, fn func(Filter)) {
	if l, ok := f.(*Locked); ok {
		l.Do(func(inner Filter) { fn(Innermost(inner)) })
		return
	}
	fn(Innermost(f))
}

// Rejected returns the number of inputs dropped by the Guard layers of f.
func Rejected(f Filter) uint64 {
	var n uint64
	for {
		if g, ok := f.(*Guard); ok {
			n += g.Rejected()
		}
		w, ok := f.(wrapper)
		if !ok {
			return n
		}
		f = w.Unwrap()
	}
}
