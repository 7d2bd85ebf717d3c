// Package sample turns raw station samples into calibrated and smoothed
// samples and distributes them to consumers.
package sample

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/itohio/goaqua/pkg/channel"
	"github.com/itohio/goaqua/pkg/station"
)

// Sample is one conditioned sampling cycle of all four sensors.
type Sample struct {
	Timestamp  time.Time
	Raw        channel.Counts // ADC counts
	Calibrated channel.Values // Physical units before filtering
	Filtered   channel.Values // Physical units after filtering

	Gain     float64                       // pH estimator gain after this sample
	Spread   channel.Values                // Window ring max-min, NaN where not applicable
	Rejected [channel.NumQuantities]uint64 // Cumulative non-finite inputs per quantity
}

// Converter is a function type that converts RawSample channel to Sample channel.
type Converter func(in <-chan station.RawSample) <-chan Sample

// NewConverter creates a converter that runs every RawSample through the
// pipeline. The pipeline's filters advance once per sample, in arrival order.
func NewConverter(p *channel.Pipeline, bufSize int) Converter {
	if bufSize <= 0 {
		bufSize = 100
	}

	return func(in <-chan station.RawSample) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			for raw := range in {
				select {
				case out <- Convert(p, raw):
				case <-time.After(time.Second):
					log.Warn("sample: converter output channel full, dropping sample")
				}
			}
		}()

		return out
	}
}

// Convert runs a single RawSample through the pipeline.
func Convert(p *channel.Pipeline, raw station.RawSample) Sample {
	r := p.Process(raw.Counts)
	return Sample{
		Timestamp:  raw.Timestamp,
		Raw:        r.Raw,
		Calibrated: r.Calibrated,
		Filtered:   r.Filtered,
		Gain:       r.Gain,
		Spread:     r.Spread,
		Rejected:   r.Rejected,
	}
}

// Broadcast copies every sample from in to n output channels. A slow consumer
// blocks the others; each output is closed when in closes.
func Broadcast(in <-chan Sample, n, bufSize int) []<-chan Sample {
	if bufSize <= 0 {
		bufSize = 100
	}

	outs := make([]chan Sample, n)
	result := make([]<-chan Sample, n)
	for i := range outs {
		outs[i] = make(chan Sample, bufSize)
		result[i] = outs[i]
	}

	go func() {
		defer func() {
			for _, out := range outs {
				close(out)
			}
		}()
		for s := range in {
			for _, out := range outs {
				out <- s
			}
		}
	}()

	return result
}
