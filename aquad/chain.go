package main

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/itohio/goaqua/pkg/channel"
	"github.com/itohio/goaqua/pkg/metrics"
	"github.com/itohio/goaqua/pkg/recorder"
	"github.com/itohio/goaqua/pkg/sample"
	"github.com/itohio/goaqua/pkg/station"
)

// chainBufferSize is the buffer of every stage channel.
const chainBufferSize = 500

// measurementChain tracks the components of the measurement chain for graceful shutdown.
type measurementChain struct {
	device       station.Device
	samples      <-chan sample.Sample
	recorderDone chan struct{} // Closed when the recorder goroutine exits
	metricsDone  chan struct{} // Closed when the metrics goroutine exits
	recorderErr  error
}

// startMeasurementChain wires device -> converter -> {recorder, metrics}.
// Every stage stops when its input closes, so closing the device drains
// the whole chain. Filtered values of the logged quantities are written to
// the debug log.
func startMeasurementChain(device station.Device, p *channel.Pipeline, rec *recorder.Recorder, m *metrics.Metrics, logged []channel.Quantity) *measurementChain {
	samples := sample.NewConverter(p, chainBufferSize)(device.Samples())
	outs := sample.Broadcast(samples, 2, chainBufferSize)

	chain := &measurementChain{
		device:       device,
		samples:      samples,
		recorderDone: make(chan struct{}),
		metricsDone:  make(chan struct{}),
	}

	go func() {
		defer close(chain.recorderDone)
		// The recorder stops on stream close, after the final flush.
		chain.recorderErr = rec.Run(context.Background(), outs[0])
	}()

	go func() {
		defer close(chain.metricsDone)
		for s := range outs[1] {
			m.Observe(s)
			if len(logged) == 0 || !log.IsLevelEnabled(log.DebugLevel) {
				continue
			}
			fields := make(log.Fields, len(logged))
			for _, q := range logged {
				fields[q.String()] = s.Filtered[q]
			}
			log.WithFields(fields).Debug("sample")
		}
	}()

	return chain
}

// closeMeasurementChain closes the device and waits for every stage to drain.
func closeMeasurementChain(chain *measurementChain) error {
	if chain == nil {
		return nil
	}

	if err := chain.device.Close(); err != nil {
		log.Warnf("Error closing device: %v", err)
	}

	<-chain.metricsDone
	<-chain.recorderDone

	return chain.recorderErr
}
