package filter

import "sync"

// Locked serialises access to a filter.
type Locked struct {
	mu sync.Mutex
	f  Filter
}

// NewLocked wraps f with a mutex.
func NewLocked(f Filter) *Locked {
	return &Locked{f: f}
}

func (l *Locked) Filter(v float64) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Filter(v)
}

func (l *Locked) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.f.Reset()
}

// Do runs fn with exclusive access to the wrapped filter, e.g. to read its
// state while other goroutines keep filtering.
func (l *Locked) Do(fn func(f Filter)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.f)
}

// Unwrap returns the wrapped filter.
func (l *Locked) Unwrap() Filter {
	return l.f
}
