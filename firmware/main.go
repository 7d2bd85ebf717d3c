//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"machine"
	"time"

	"github.com/chewxy/math32"
)

const numChannels = 4

var (
	adcs [numChannels]machine.ADC
	uart = machine.UART0

	// Running sums per channel, reset after every output line
	sums  [numChannels]uint32
	count int

	lastADCRead time.Time
)

func main() {
	pins := [numChannels]machine.Pin{PIN_PH, PIN_TURBIDITY, PIN_COLOR, PIN_CHLORINE}

	adcConfig := machine.ADCConfig{
		Reference:  ADC_REFERENCE_MV,
		Resolution: ADC_RESOLUTION,
	}
	for i, pin := range pins {
		pin.Configure(machine.PinConfig{Mode: machine.PinInput})
		adcs[i] = machine.ADC{Pin: pin}
		adcs[i].Configure(adcConfig)
	}

	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	lastADCRead = time.Now()

	for {
		now := time.Now()

		if now.Sub(lastADCRead) >= time.Duration(SAMPLE_INTERVAL_MS)*time.Millisecond {
			readADCs()
			lastADCRead = now
		}

		if count >= NUM_SAMPLES {
			outputAveragedValues()
			sums = [numChannels]uint32{}
			count = 0
		}

		// Small delay to prevent tight loop (but still allow precise timing)
		time.Sleep(100 * time.Microsecond)
	}
}

func readADCs() {
	for i := range adcs {
		// machine.ADC returns 16-bit left-aligned values
		sums[i] += uint32(adcs[i].Get() >> 4)
	}
	count++
}

// mean returns the rounded average count of channel i.
func mean(i int) uint16 {
	if count == 0 {
		return 0
	}
	v := math32.Round(float32(sums[i]) / float32(count))
	if v > 4095 {
		v = 4095
	}
	return uint16(v)
}

func outputAveragedValues() {
	// Get timestamp in unix microseconds
	timestampMicros := time.Now().UnixNano() / 1000

	// Output format: "unix_micros,ph,turbidity,color,chlorine\n"
	print(timestampMicros)
	for i := range adcs {
		print(",")
		print(mean(i))
	}
	print("\n")
}
