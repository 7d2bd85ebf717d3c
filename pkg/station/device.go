// Package station provides the raw-sample sources of the water-quality
// station: the serial link to the sampling firmware and a simulated device.
package station

import (
	"time"

	"github.com/itohio/goaqua/pkg/channel"
)

const (
	// DefaultBaudRate is the firmware UART baud rate.
	DefaultBaudRate = 115200
	// DefaultBufferSize is the default size for the samples channel buffer.
	DefaultBufferSize = 100
	// MaxCount is the largest valid 12-bit ADC reading.
	MaxCount = 4095
)

// RawSample is one sampling cycle of all four sensors, in quantity order.
type RawSample struct {
	Timestamp time.Time
	Counts    channel.Counts
}

// Device defines the interface for station devices (real or mocked).
type Device interface {
	Connect() error
	Close() error
	Samples() <-chan RawSample
	IsConnected() bool
}

var (
	_ Device = (*Serial)(nil)
	_ Device = (*Mock)(nil)

	_ channel.ADC = (*Mock)(nil)
)
