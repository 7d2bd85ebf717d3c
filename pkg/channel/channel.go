// Package channel wires each monitored quantity to its calibration transform and
// its own filter instance.
package channel

import (
	"fmt"

	"github.com/itohio/goaqua/pkg/calibration"
	"github.com/itohio/goaqua/pkg/filter"
)

// ADC reads raw 12-bit samples from analog pins.
type ADC interface {
	Read(pin int) (uint16, error)
}

// ADCFunc adapts a function to the ADC interface.
type ADCFunc func(pin int) (uint16, error)

func (f ADCFunc) Read(pin int) (uint16, error) {
	return f(pin)
}

// Channel is one sensor: a pin, its calibration and its filter.
type Channel struct {
	Quantity    Quantity
	Pin         int
	Calibration calibration.Transform
	Filter      filter.Filter
}

// Process calibrates raw and feeds the calibrated value to the filter.
func (c *Channel) Process(raw uint16) (calibrated, filtered float64) {
	calibrated = c.Calibration.Apply(raw)
	return calibrated, c.Filter.Filter(calibrated)
}

// ReadAndFilter samples the channel's pin, calibrates and filters the reading.
// The filter is left untouched when the read fails.
func (c *Channel) ReadAndFilter(adc ADC) (float64, error) {
	raw, err := adc.Read(c.Pin)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s on pin %d: %w", c.Quantity, c.Pin, err)
	}
	_, filtered := c.Process(raw)
	return filtered, nil
}
