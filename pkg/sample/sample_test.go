package sample

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/goaqua/pkg/channel"
	"github.com/itohio/goaqua/pkg/config"
	"github.com/itohio/goaqua/pkg/station"
)

func TestConvert(t *testing.T) {
	p := channel.New(config.Default())
	now := time.Now()

	s := Convert(p, station.RawSample{
		Timestamp: now,
		Counts:    channel.Counts{2048, 819, 1365, 4095},
	})

	assert.Equal(t, now, s.Timestamp)
	assert.Equal(t, channel.Counts{2048, 819, 1365, 4095}, s.Raw)
	assert.InDelta(t, 8.126, s.Calibrated[channel.PH], 1e-3)
	assert.InDelta(t, 1.0, s.Calibrated[channel.Turbidity], 1e-12)
	assert.InDelta(t, 10.0, s.Calibrated[channel.Color], 1e-12)
	assert.InDelta(t, 3.0, s.Calibrated[channel.Chlorine], 1e-12)

	assert.InDelta(t, 8.0237, s.Filtered[channel.PH], 1e-3)
	assert.InDelta(t, 1.0/5.5, s.Filtered[channel.Turbidity], 1e-12)
	assert.InDelta(t, 10.0/5.5, s.Filtered[channel.Color], 1e-12)
	assert.InDelta(t, 3.0/5.5, s.Filtered[channel.Chlorine], 1e-12)

	assert.Equal(t, p.PHGain(), s.Gain)
	assert.Equal(t, 3.0, s.Spread[channel.Chlorine])
}

func TestNewConverter_GainTracksSample(t *testing.T) {
	p := channel.New(config.Default())
	in := make(chan station.RawSample, 3)
	for _i := 0; _i < 3; _i++ {
		in <- station.RawSample{Timestamp: time.Now(), Counts: channel.Counts{2048, 819, 1365, 4095}}
	}
	close(in)

	var gains []float64
	for s := range NewConverter(p, 3)(in) {
		gains = append(gains, s.Gain)
	}

	// p_n = 1/(1+10n), gain_n = p_n/(p_n+0.1)
	require.Len(t, gains, 3)
	for i, g := range gains {
		pn := 1 / (1 + 10*float64(i+1))
		assert.InDelta(t, pn/(pn+0.1), g, 1e-12)
	}
}

func TestNewConverter_OrderAndState(t *testing.T) {
	p := channel.New(config.Default())
	converter := NewConverter(p, 10)

	in := make(chan station.RawSample, 10)
	out := converter(in)

	now := time.Now()
	for i := 0; i < 6; i++ {
		in <- station.RawSample{
			Timestamp: now.Add(time.Duration(i) * time.Millisecond),
			Counts:    channel.Counts{2048, 819, 1365, 4095},
		}
	}
	close(in)

	var samples []Sample
	for s := range out {
		samples = append(samples, s)
	}

	require.Len(t, samples, 6)
	for i, s := range samples {
		assert.Equal(t, now.Add(time.Duration(i)*time.Millisecond), s.Timestamp)
	}
	// Window has filled by the fifth sample.
	last := samples[5]
	assert.InDelta(t, 1.0, last.Filtered[channel.Turbidity], 1e-12)
	assert.Less(t, samples[0].Filtered[channel.Color], samples[4].Filtered[channel.Color])
}

func TestNewConverter_DefaultBuffer(t *testing.T) {
	converter := NewConverter(channel.New(config.Default()), 0)
	in := make(chan station.RawSample)
	out := converter(in)
	assert.Equal(t, 100, cap(out))
	close(in)
}

// TestConverter_GracefulShutdown tests that converter closes output channel
// when input channel is closed.
func TestConverter_GracefulShutdown(t *testing.T) {
	converter := NewConverter(channel.New(config.Default()), 10)
	input := make(chan station.RawSample, 10)
	output := converter(input)

	received := make(chan int, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		count := 0
		for range output {
			count++
		}
		received <- count
	}()

	numSamples := 3
	for _i := 0; _i < numSamples; _i++ {
		input <- station.RawSample{Timestamp: time.Now(), Counts: channel.Counts{1, 2, 3, 4}}
	}
	close(input)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Output channel did not close within timeout")
	}

	assert.Equal(t, numSamples, <-received, "Should receive all samples before channel closes")
}

func TestBroadcast(t *testing.T) {
	in := make(chan Sample)
	outs := Broadcast(in, 3, 10)
	require.Len(t, outs, 3)

	now := time.Now()
	go func() {
		for i := 0; i < 4; i++ {
			in <- Sample{Timestamp: now.Add(time.Duration(i) * time.Second)}
		}
		close(in)
	}()

	for _, out := range outs {
		var got []time.Time
		for s := range out {
			got = append(got, s.Timestamp)
		}
		require.Len(t, got, 4)
		assert.Equal(t, now, got[0])
		assert.Equal(t, now.Add(3*time.Second), got[3])
	}
}
