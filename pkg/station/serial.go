package station

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"

	"github.com/itohio/goaqua/pkg/channel"
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial reads raw samples streamed by the sampling firmware.
type Serial struct {
	port     string
	baudRate int
	bufSize  int

	conn      serial.Port
	samples   chan RawSample
	done      chan struct{}
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
}

// New creates a new Serial device with the specified port, baud rate, and buffer size.
func New(port string, baudRate int, bufSize int) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Serial{
		port:     port,
		baudRate: baudRate,
		bufSize:  bufSize,
		samples:  make(chan RawSample, bufSize),
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{
			Name:        name,
			Description: name,
		})
	}

	return result, nil
}

// Connect opens the serial port and starts reading samples.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return fmt.Errorf("already connected")
	}
	if d.ctx.Err() != nil {
		return fmt.Errorf("device closed")
	}

	port, err := serial.Open(d.port, &serial.Mode{BaudRate: d.baudRate})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	d.conn = port
	d.connected = true

	go d.run(port)

	return nil
}

// Close closes the port and waits for the reader to stop. The samples
// channel is closed once the reader has exited.
func (d *Serial) Close() error {
	d.mu.Lock()
	if !d.connected {
		d.mu.Unlock()
		return nil
	}

	d.cancel()
	if err := d.conn.Close(); err != nil {
		log.Warnf("station: error closing serial port %s: %v", d.port, err)
	}
	d.conn = nil
	d.connected = false
	d.mu.Unlock()

	<-d.done
	return nil
}

// Samples returns the channel for reading samples.
func (d *Serial) Samples() <-chan RawSample {
	return d.samples
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

func (d *Serial) run(r io.Reader) {
	defer close(d.done)
	defer close(d.samples)
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("station: panic in serial reader: %v", r)
		}
	}()

	readSamples(d.ctx, r, d.samples)
}

// readSamples parses firmware lines from r and forwards them to out until r
// is exhausted or ctx is cancelled. Malformed lines are logged and skipped;
// samples are dropped when out is full.
func readSamples(ctx context.Context, r io.Reader, out chan<- RawSample) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		sample, err := parseLine(line)
		if err != nil {
			log.Warnf("station: failed to parse line %q: %v", line, err)
			continue
		}

		select {
		case out <- sample:
		case <-ctx.Done():
			return
		default:
			log.Warn("station: samples channel full, dropping sample")
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil && !errors.Is(err, io.EOF) {
		log.Errorf("station: error reading from serial port: %v", err)
	}
}

// parseLine parses a firmware line into a RawSample.
// Format: unix_micros,ph,turbidity,color,chlorine
// Example: 1234567890123,2048,819,1365,4095
func parseLine(line string) (RawSample, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 1+channel.NumQuantities {
		return RawSample{}, fmt.Errorf("invalid line format: expected %d comma-separated values, got %d", 1+channel.NumQuantities, len(parts))
	}

	timestampMicros, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return RawSample{}, fmt.Errorf("invalid timestamp: %w", err)
	}

	sample := RawSample{
		Timestamp: time.UnixMicro(timestampMicros),
	}
	for i, q := range channel.Quantities {
		v, err := strconv.ParseUint(strings.TrimSpace(parts[i+1]), 10, 16)
		if err != nil {
			return RawSample{}, fmt.Errorf("invalid %s reading: %w", q, err)
		}
		if v > MaxCount {
			return RawSample{}, fmt.Errorf("%s reading out of range: %d (max %d)", q, v, MaxCount)
		}
		sample.Counts[i] = uint16(v)
	}

	return sample, nil
}
