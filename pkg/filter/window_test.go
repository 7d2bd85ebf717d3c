package filter

import (
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindow_Defaults(t *testing.T) {
	w := DefaultWindow()

	assert.Equal(t, 5, w.Size())
	assert.Equal(t, 0, w.Next())
	assert.Equal(t, []float64{0, 0, 0, 0, 0}, w.Values())
}

func TestWindow_InvalidSize(t *testing.T) {
	w := NewWindow(0, 0)
	assert.Equal(t, DefaultWindowSize, w.Size())

	w = NewWindow(-3, 2)
	assert.Equal(t, DefaultWindowSize, w.Size())
}

func TestWindow_WarmUp(t *testing.T) {
	w := DefaultWindow()

	// The emphasised slot is the one under the advanced cursor. For the
	// first four calls it still holds zero; on the fifth call the cursor
	// wraps to slot 0, which holds the 10.
	inputs := []float64{10, 0, 0, 0, 0}
	want := []float64{10 / 5.5, 10 / 5.5, 10 / 5.5, 10 / 5.5, 15 / 5.5}

	for i, v := range inputs {
		got := w.Filter(v)
		assert.InDelta(t, want[i], got, 1e-12, "call %d", i+1)
	}
	assert.InDelta(t, 2.727, want[4], 1e-3)
}

func TestWindow_EmphasisFollowsCursor(t *testing.T) {
	w := NewWindow(3, 2)

	// buf = [3, 0, 0], next = 1 -> weights [1, 2, 1]
	assert.InDelta(t, 3.0/4, w.Filter(3), 1e-12)
	// buf = [3, 5, 0], next = 2 -> weights [1, 1, 2]
	assert.InDelta(t, 8.0/4, w.Filter(5), 1e-12)
	// buf = [3, 5, 7], next = 0 -> weights [2, 1, 1]
	assert.InDelta(t, (6.0+5+7)/4, w.Filter(7), 1e-12)
	// buf = [11, 5, 7], next = 1 -> weights [1, 2, 1]
	assert.InDelta(t, (11.0+10+7)/4, w.Filter(11), 1e-12)
	assert.Equal(t, 1, w.Next())
}

func TestWindow_SteadyState(t *testing.T) {
	tests := []struct {
		name string
		size int
		v    float64
	}{
		{name: "default window", size: 5, v: 2.5},
		{name: "negative value", size: 5, v: -4},
		{name: "larger window", size: 8, v: 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWindow(tt.size, DefaultEmphasis)
			for _i := 0; _i < tt.size; _i++ {
				w.Filter(tt.v)
			}
			for _i := 0; _i < 2 * tt.size; _i++ {
				assert.Equal(t, tt.v, w.Filter(tt.v))
			}
		})
	}
}

func TestWindow_Bounded(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	w := DefaultWindow()

	for i := 0; i < 1000; i++ {
		v := rng.NormFloat64()*50 + 20
		got := w.Filter(v)
		lo, hi := w.Bounds()
		require.GreaterOrEqual(t, got, lo-1e-9, "call %d", i)
		require.LessOrEqual(t, got, hi+1e-9, "call %d", i)
	}
}

func TestWindow_Independent(t *testing.T) {
	a := DefaultWindow()
	b := DefaultWindow()

	for i := 0; i < 20; i++ {
		a.Filter(float64(100 + i))
		assert.Equal(t, 0.0, b.Filter(0), "call %d", i)
	}
	assert.Equal(t, []float64{0, 0, 0, 0, 0}, b.Values())
	lo, _ := a.Bounds()
	assert.GreaterOrEqual(t, lo, 100.0)
}

func TestWindow_NaNPropagatesUntilFlushed(t *testing.T) {
	w := DefaultWindow()
	for _i := 0; _i < 5; _i++ {
		w.Filter(1)
	}

	assert.True(t, math.IsNaN(w.Filter(math.NaN())))
	for _i := 0; _i < 4; _i++ {
		assert.True(t, math.IsNaN(w.Filter(1)))
	}
	// Five valid samples have pushed the NaN out.
	assert.Equal(t, 1.0, w.Filter(1))
}

func TestWindow_Reset(t *testing.T) {
	w := DefaultWindow()
	w.Filter(4)
	w.Filter(5)

	w.Reset()

	assert.Equal(t, 0, w.Next())
	assert.Equal(t, []float64{0, 0, 0, 0, 0}, w.Values())
	assert.InDelta(t, 10/5.5, w.Filter(10), 1e-12)
}

func TestWindow_EstimateAndSpread(t *testing.T) {
	w := DefaultWindow()
	assert.Equal(t, 0.0, w.Estimate())
	assert.Equal(t, 0.0, w.Spread())

	w.Filter(3)
	out := w.Filter(8)

	assert.Equal(t, out, w.Estimate())
	assert.Equal(t, 8.0, w.Spread())

	for _i := 0; _i < 5; _i++ {
		w.Filter(2)
	}
	assert.Equal(t, 0.0, w.Spread())
}

func TestLocked_ConcurrentFilter(t *testing.T) {
	l := NewLocked(DefaultWindow())

	var wg sync.WaitGroup
	for _i := 0; _i < 8; _i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _i := 0; _i < 500; _i++ {
				l.Filter(3)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3.0, l.Filter(3))
	l.Do(func(f Filter) {
		w := f.(*Window)
		assert.Equal(t, []float64{3, 3, 3, 3, 3}, w.Values())
	})
}
