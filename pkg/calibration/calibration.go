// Package calibration converts raw 12-bit ADC counts into physical units.
package calibration

// FullScale is the largest 12-bit ADC reading.
const FullScale = 4095.0

// Transform converts a raw ADC count into a physical value.
type Transform interface {
	Apply(raw uint16) float64
}

// Linear is an affine calibration: Gain*(raw*Span/FullScale) + Offset.
// Span is the value represented by a full-scale reading (e.g. the reference
// voltage for a voltage output sensor).
type Linear struct {
	Span   float64 `yaml:"span"`
	Gain   float64 `yaml:"gain"`
	Offset float64 `yaml:"offset"`
}

var _ Transform = Linear{}

// Apply converts raw to a calibrated value.
func (l Linear) Apply(raw uint16) float64 {
	return l.Gain*Voltage(raw, l.Span) + l.Offset
}

// Voltage scales a 12-bit ADC reading to span.
// The multiplication happens before the division so results match the
// firmware's integer-first arithmetic.
func Voltage(raw uint16, span float64) float64 {
	return float64(raw) * span / FullScale
}

// PH maps the pH probe output (0..3.3 V) to pH: 2.5*V + 4.0.
func PH() Linear {
	return Linear{Span: 3.3, Gain: 2.5, Offset: 4.0}
}

// Turbidity maps the turbidity sensor reading onto 0..5.
func Turbidity() Linear {
	return Linear{Span: 5.0, Gain: 1, Offset: 0}
}

// Color maps the color sensor reading onto 0..30.
func Color() Linear {
	return Linear{Span: 30.0, Gain: 1, Offset: 0}
}

// Chlorine maps the free chlorine sensor reading onto 0..3 mg/L.
func Chlorine() Linear {
	return Linear{Span: 3.0, Gain: 1, Offset: 0}
}
