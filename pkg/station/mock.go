package station

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/itohio/goaqua/pkg/channel"
	"github.com/itohio/goaqua/pkg/config"
)

// Mock simulates the station for testing and development. Each sensor
// produces the ADC count of a configured physical value plus a slow drift
// and uniform noise.
type Mock struct {
	cfg      *config.MockConfig
	channels *config.ChannelsConfig

	samples   chan RawSample
	done      chan struct{}
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
	startTime time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewMock creates a new mocked device instance. A nil cfg uses the defaults.
func NewMock(cfg *config.Config) *Mock {
	if cfg == nil {
		cfg = config.Default()
	}

	seed := cfg.Mock.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Mock{
		cfg:      &cfg.Mock,
		channels: &cfg.Channels,
		samples:  make(chan RawSample, DefaultBufferSize),
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Connect starts generating samples.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}
	if m.ctx.Err() != nil {
		return fmt.Errorf("device closed")
	}

	m.connected = true
	m.startTime = time.Now()

	go m.generateSamples()

	return nil
}

// Close stops the generator and waits for the samples channel to close.
func (m *Mock) Close() error {
	m.mu.Lock()
	if !m.connected {
		m.mu.Unlock()
		return nil
	}
	m.cancel()
	m.connected = false
	m.mu.Unlock()

	<-m.done
	return nil
}

// Samples returns the channel for reading samples.
func (m *Mock) Samples() <-chan RawSample {
	return m.samples
}

// IsConnected returns whether the device is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// Read returns a simulated count for the sensor wired to pin.
// It can be polled without connecting the device.
func (m *Mock) Read(pin int) (uint16, error) {
	for _, q := range channel.Quantities {
		if m.channel(q).Pin == pin {
			return m.count(q, time.Since(m.started())), nil
		}
	}
	return 0, fmt.Errorf("no sensor on pin %d", pin)
}

func (m *Mock) started() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.startTime
}

// generateSamples emits one sample per tick until the device is closed.
func (m *Mock) generateSamples() {
	defer close(m.done)
	defer close(m.samples)

	rate := m.cfg.SampleRate
	if rate <= 0 {
		rate = 100 * time.Millisecond
	}
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	start := m.started()
	for {
		select {
		case <-m.ctx.Done():
			return
		case now := <-ticker.C:
			sample := m.generateSample(now, now.Sub(start))
			select {
			case m.samples <- sample:
			case <-m.ctx.Done():
				return
			default:
				// Channel full, skip
			}
		}
	}
}

// generateSample generates a single simulated sample.
func (m *Mock) generateSample(now time.Time, elapsed time.Duration) RawSample {
	sample := RawSample{Timestamp: now}
	for i, q := range channel.Quantities {
		sample.Counts[i] = m.count(q, elapsed)
	}
	return sample
}

// count converts the simulated value of q back into ADC counts.
func (m *Mock) count(q channel.Quantity, elapsed time.Duration) uint16 {
	cal := m.channel(q).Calibration

	// Slow drift of 2% of the value with a one minute period.
	value := m.value(q)
	value += 0.02 * value * math.Sin(2*math.Pi*elapsed.Seconds()/60)

	counts := (value - cal.Offset) / cal.Gain * MaxCount / cal.Span
	m.rngMu.Lock()
	counts += (m.rng.Float64()*2 - 1) * m.cfg.NoiseLevel
	m.rngMu.Unlock()

	return clampCount(counts)
}

func (m *Mock) value(q channel.Quantity) float64 {
	switch q {
	case channel.PH:
		return m.cfg.PH
	case channel.Turbidity:
		return m.cfg.Turbidity
	case channel.Color:
		return m.cfg.Color
	default:
		return m.cfg.Chlorine
	}
}

func (m *Mock) channel(q channel.Quantity) *config.ChannelConfig {
	switch q {
	case channel.PH:
		return &m.channels.PH
	case channel.Turbidity:
		return &m.channels.Turbidity
	case channel.Color:
		return &m.channels.Color
	default:
		return &m.channels.Chlorine
	}
}

// clampCount rounds v to the nearest valid 12-bit count.
func clampCount(v float64) uint16 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > MaxCount {
		return MaxCount
	}
	return uint16(v + 0.5)
}
