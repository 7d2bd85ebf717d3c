package filter

import (
	"gonum.org/v1/gonum/floats"
)

const (
	// DefaultWindowSize is the number of samples kept by the window averager.
	DefaultWindowSize = 5
	// DefaultEmphasis is the weight of the emphasised slot; all others weigh 1.
	DefaultEmphasis = 1.5
)

// Window is a weighted moving average over a fixed ring of the last N inputs.
//
// After each write the cursor advances, and the slot under the advanced cursor
// (the oldest entry, overwritten by the next call) receives the emphasis
// weight. Unwritten slots hold zero, so outputs are biased low until the ring
// has been filled once.
type Window struct {
	buf      []float64
	next     int
	emphasis float64
}

// NewWindow creates a window averager with size slots.
func NewWindow(size int, emphasis float64) *Window {
	if size <= 0 {
		size = DefaultWindowSize
	}
	if emphasis <= 0 {
		emphasis = DefaultEmphasis
	}

	return &Window{
		buf:      make([]float64, size),
		emphasis: emphasis,
	}
}

// DefaultWindow returns the averager used for turbidity, color and chlorine.
func DefaultWindow() *Window {
	return NewWindow(DefaultWindowSize, DefaultEmphasis)
}

// Filter stores v and returns the weighted mean of the whole ring.
func (w *Window) Filter(v float64) float64 {
	w.buf[w.next] = v
	w.next = (w.next + 1) % len(w.buf)
	return w.Estimate()
}

// Estimate returns the weighted mean of the ring, i.e. the output of the last
// call to Filter. It is 0 before the first call and after Reset.
func (w *Window) Estimate() float64 {
	var sum, total float64
	for i, x := range w.buf {
		weight := 1.0
		if i == w.next {
			weight = w.emphasis
		}
		sum += x * weight
		total += weight
	}
	return sum / total
}

// Reset zeroes the ring and rewinds the cursor.
func (w *Window) Reset() {
	for i := range w.buf {
		w.buf[i] = 0
	}
	w.next = 0
}

// Size returns the number of slots.
func (w *Window) Size() int {
	return len(w.buf)
}

// Next returns the index of the slot written by the next call.
func (w *Window) Next() int {
	return w.next
}

// Values returns a copy of the ring in slot order.
func (w *Window) Values() []float64 {
	out := make([]float64, len(w.buf))
	copy(out, w.buf)
	return out
}

// Bounds returns the smallest and largest value currently held.
func (w *Window) Bounds() (lo, hi float64) {
	return floats.Min(w.buf), floats.Max(w.buf)
}

// Spread returns the difference between the largest and smallest value held.
func (w *Window) Spread() float64 {
	lo, hi := w.Bounds()
	return hi - lo
}
