package filter

import (
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultEstimate is the neutral pH used as the initial guess.
	DefaultEstimate = 7.0
	// DefaultErrorEstimate is the initial estimate uncertainty.
	DefaultErrorEstimate = 1.0
	// DefaultErrorMeasurement is the assumed sensor noise variance in calibrated units.
	DefaultErrorMeasurement = 0.1
)

// Recursive is a single-state recursive estimator (a Kalman filter without a
// process-noise term). The error estimate only shrinks, so the gain decays
// towards zero and the filter increasingly resists new measurements.
type Recursive struct {
	estimate         float64
	errorEstimate    float64
	errorMeasurement float64

	initialEstimate      float64
	initialErrorEstimate float64
}

// NewRecursive creates a recursive estimator with the given priors.
// Non-positive uncertainties are replaced with the defaults.
func NewRecursive(initial, errorEstimate, errorMeasurement float64) *Recursive {
	if errorEstimate <= 0 {
		log.Warnf("filter: invalid error estimate %v, using %v", errorEstimate, DefaultErrorEstimate)
		errorEstimate = DefaultErrorEstimate
	}
	if errorMeasurement <= 0 {
		log.Warnf("filter: invalid measurement error %v, using %v", errorMeasurement, DefaultErrorMeasurement)
		errorMeasurement = DefaultErrorMeasurement
	}

	return &Recursive{
		estimate:             initial,
		errorEstimate:        errorEstimate,
		errorMeasurement:     errorMeasurement,
		initialEstimate:      initial,
		initialErrorEstimate: errorEstimate,
	}
}

// DefaultRecursive returns the estimator used for pH.
func DefaultRecursive() *Recursive {
	return NewRecursive(DefaultEstimate, DefaultErrorEstimate, DefaultErrorMeasurement)
}

// Filter blends the measurement into the estimate and returns the new estimate.
func (r *Recursive) Filter(measurement float64) float64 {
	gain := r.errorEstimate / (r.errorEstimate + r.errorMeasurement)
	r.estimate = r.estimate + gain*(measurement-r.estimate)
	r.errorEstimate = (1 - gain) * r.errorEstimate
	return r.estimate
}

// Reset restores the initial estimate and uncertainty.
func (r *Recursive) Reset() {
	r.estimate = r.initialEstimate
	r.errorEstimate = r.initialErrorEstimate
}

// Estimate returns the current estimate.
func (r *Recursive) Estimate() float64 {
	return r.estimate
}

// ErrorEstimate returns the current estimate uncertainty.
func (r *Recursive) ErrorEstimate() float64 {
	return r.errorEstimate
}

// ErrorMeasurement returns the fixed measurement noise.
func (r *Recursive) ErrorMeasurement() float64 {
	return r.errorMeasurement
}

// Gain returns the gain the next call to Filter will apply.
func (r *Recursive) Gain() float64 {
	return r.errorEstimate / (r.errorEstimate + r.errorMeasurement)
}
