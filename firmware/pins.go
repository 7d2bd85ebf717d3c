//go:build tinygo

package main

import "machine"

const (
	// Sampling configuration
	SAMPLE_INTERVAL_MS = 1  // ADC read interval in milliseconds (same for all channels)
	NUM_SAMPLES        = 20 // Number of samples averaged into one output line

	// ADC configuration
	ADC_REFERENCE_MV = 3300 // Reference voltage in millivolts (3.3V)
	ADC_RESOLUTION   = 12   // ADC resolution in bits (12-bit = 0-4095)

	// Sensor pins, in output order
	PIN_PH        = machine.A0
	PIN_TURBIDITY = machine.A1
	PIN_COLOR     = machine.A2
	PIN_CHLORINE  = machine.A3

	// Serial configuration
	// Format "unix_micros,ph,turbidity,color,chlorine\n"
	// Example: "1234567890123456,4095,4095,4095,4095\n" = ~38 bytes max per line
	// 50 outputs/sec * 38 bytes/line = 1,900 bytes/sec
	// 115200 baud (8N1) moves 11,520 bytes/sec, ~6x headroom
	UART_BAUD_RATE = 115200
)
