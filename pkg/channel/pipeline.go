package channel

import (
	"fmt"
	"math"

	"github.com/itohio/goaqua/pkg/config"
	"github.com/itohio/goaqua/pkg/filter"
)

// Counts holds one raw ADC reading per quantity.
type Counts [NumQuantities]uint16

// Values holds one physical value per quantity.
type Values [NumQuantities]float64

// Reading is one pass over all channels.
type Reading struct {
	Raw        Counts
	Calibrated Values
	Filtered   Values

	Gain     float64               // pH estimator gain for the next reading
	Spread   Values                // Max-min of each window ring, NaN for other filters
	Rejected [NumQuantities]uint64 // Non-finite inputs dropped so far
}

// Pipeline owns the four sensor channels. It is the only owner of their
// filters; nothing else holds a reference to them.
type Pipeline struct {
	channels [NumQuantities]*Channel
}

// New builds the pipeline from configuration: the recursive estimator for pH
// and an independent window averager for each of the other quantities.
func New(cfg *config.Config) *Pipeline {
	rc := cfg.Filters.Recursive
	wc := cfg.Filters.Window

	wrap := func(f filter.Filter) filter.Filter {
		if cfg.Filters.RejectNonFinite {
			f = filter.NewGuard(f)
		}
		return filter.NewLocked(f)
	}

	p := &Pipeline{}
	p.channels[PH] = &Channel{
		Quantity:    PH,
		Pin:         cfg.Channels.PH.Pin,
		Calibration: cfg.Channels.PH.Calibration,
		Filter:      wrap(filter.NewRecursive(rc.Estimate, rc.ErrorEstimate, rc.ErrorMeasurement)),
	}
	p.channels[Turbidity] = &Channel{
		Quantity:    Turbidity,
		Pin:         cfg.Channels.Turbidity.Pin,
		Calibration: cfg.Channels.Turbidity.Calibration,
		Filter:      wrap(filter.NewWindow(wc.Size, wc.Emphasis)),
	}
	p.channels[Color] = &Channel{
		Quantity:    Color,
		Pin:         cfg.Channels.Color.Pin,
		Calibration: cfg.Channels.Color.Calibration,
		Filter:      wrap(filter.NewWindow(wc.Size, wc.Emphasis)),
	}
	p.channels[Chlorine] = &Channel{
		Quantity:    Chlorine,
		Pin:         cfg.Channels.Chlorine.Pin,
		Calibration: cfg.Channels.Chlorine.Calibration,
		Filter:      wrap(filter.NewWindow(wc.Size, wc.Emphasis)),
	}
	return p
}

// Channel returns the channel for q.
func (p *Pipeline) Channel(q Quantity) *Channel {
	return p.channels[q]
}

// FilterPH smooths an already calibrated pH value.
func (p *Pipeline) FilterPH(v float64) float64 { return p.channels[PH].Filter.Filter(v) }

// FilterTurbidity smooths an already calibrated turbidity value.
func (p *Pipeline) FilterTurbidity(v float64) float64 { return p.channels[Turbidity].Filter.Filter(v) }

// FilterColor smooths an already calibrated color value.
func (p *Pipeline) FilterColor(v float64) float64 { return p.channels[Color].Filter.Filter(v) }

// FilterChlorine smooths an already calibrated free chlorine value.
func (p *Pipeline) FilterChlorine(v float64) float64 { return p.channels[Chlorine].Filter.Filter(v) }

func (p *Pipeline) ReadAndFilterPH(adc ADC) (float64, error) {
	return p.channels[PH].ReadAndFilter(adc)
}

func (p *Pipeline) ReadAndFilterTurbidity(adc ADC) (float64, error) {
	return p.channels[Turbidity].ReadAndFilter(adc)
}

func (p *Pipeline) ReadAndFilterColor(adc ADC) (float64, error) {
	return p.channels[Color].ReadAndFilter(adc)
}

func (p *Pipeline) ReadAndFilterChlorine(adc ADC) (float64, error) {
	return p.channels[Chlorine].ReadAndFilter(adc)
}

// Process runs already sampled counts through every channel in order.
func (p *Pipeline) Process(raw Counts) Reading {
	r := Reading{Raw: raw}
	for i, c := range p.channels {
		r.Calibrated[i], r.Filtered[i] = c.Process(raw[i])
		r.Spread[i] = spread(c.Filter)
		r.Rejected[i] = filter.Rejected(c.Filter)
	}
	r.Gain = p.PHGain()
	return r
}

func spread(f filter.Filter) float64 {
	s := math.NaN()
	filter.Inspect(f, func(f filter.Filter) {
		if w, ok := f.(*filter.Window); ok {
			s = w.Spread()
		}
	})
	return s
}

// ReadAll samples every channel in order, as one cycle of the control loop.
// If any read fails no filter is updated.
func (p *Pipeline) ReadAll(adc ADC) (Reading, error) {
	var raw Counts
	for i, c := range p.channels {
		v, err := adc.Read(c.Pin)
		if err != nil {
			return Reading{}, fmt.Errorf("failed to read %s on pin %d: %w", c.Quantity, c.Pin, err)
		}
		raw[i] = v
	}
	return p.Process(raw), nil
}

// PHGain returns the gain the pH estimator will apply to the next reading.
func (p *Pipeline) PHGain() float64 {
	var gain float64
	filter.Inspect(p.channels[PH].Filter, func(f filter.Filter) {
		if r, ok := f.(*filter.Recursive); ok {
			gain = r.Gain()
		}
	})
	return gain
}

// Reset restores every filter to its initial state, e.g. after the station
// reconnects and the old state no longer describes the water being sampled.
func (p *Pipeline) Reset() {
	for _, c := range p.channels {
		c.Filter.Reset()
	}
}
