// Package metrics exports conditioned sensor values as Prometheus metrics.
package metrics

import (
	"math"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/itohio/goaqua/pkg/channel"
	"github.com/itohio/goaqua/pkg/sample"
)

const namespace = "goaqua"

// Metrics holds the station's collectors.
type Metrics struct {
	raw        *prometheus.GaugeVec
	calibrated *prometheus.GaugeVec
	filtered   *prometheus.GaugeVec
	spread     *prometheus.GaugeVec
	rejected   *prometheus.CounterVec
	gain       prometheus.Gauge
	samples    prometheus.Counter

	mu           sync.Mutex
	seenRejected [channel.NumQuantities]uint64
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		raw: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "raw_counts",
				Help:      "Latest raw 12-bit ADC reading per sensor",
			},
			[]string{"quantity"},
		),
		calibrated: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "calibrated_value",
				Help:      "Latest calibrated value per sensor, before filtering",
			},
			[]string{"quantity"},
		),
		filtered: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "filtered_value",
				Help:      "Latest calibrated and filtered value per sensor",
			},
			[]string{"quantity"},
		),
		spread: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "window_spread",
				Help:      "Difference between the largest and smallest value in each window averager",
			},
			[]string{"quantity"},
		),
		rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rejected_inputs_total",
				Help:      "Non-finite calibrated values dropped before filtering",
			},
			[]string{"quantity"},
		),
		gain: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ph_filter_gain",
				Help:      "Gain the pH estimator applies to the next reading",
			},
		),
		samples: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "samples_total",
				Help:      "Number of conditioned samples",
			},
		),
	}

	for _, c := range []prometheus.Collector{m.raw, m.calibrated, m.filtered, m.spread, m.rejected, m.gain, m.samples} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Observe records a conditioned sample.
func (m *Metrics) Observe(s sample.Sample) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, q := range channel.Quantities {
		name := q.String()
		m.raw.WithLabelValues(name).Set(float64(s.Raw[q]))
		m.calibrated.WithLabelValues(name).Set(s.Calibrated[q])
		m.filtered.WithLabelValues(name).Set(s.Filtered[q])
		if !math.IsNaN(s.Spread[q]) {
			m.spread.WithLabelValues(name).Set(s.Spread[q])
		}
		// Sample counts are cumulative; the counter only moves forward.
		if n := s.Rejected[q]; n > m.seenRejected[q] {
			m.rejected.WithLabelValues(name).Add(float64(n - m.seenRejected[q]))
			m.seenRejected[q] = n
		}
	}
	m.gain.Set(s.Gain)
	m.samples.Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
