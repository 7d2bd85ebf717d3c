package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/itohio/goaqua/pkg/channel"
	"github.com/itohio/goaqua/pkg/config"
	"github.com/itohio/goaqua/pkg/metrics"
	"github.com/itohio/goaqua/pkg/recorder"
	"github.com/itohio/goaqua/pkg/station"
)

func main() {
	var (
		portFlag    = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag  = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag    = flag.Bool("mock", false, "Use mocked device instead of serial port")
		metricsFlag = flag.String("metrics", "", "Metrics listen address override (e.g., :9108)")
		outputFlag  = flag.String("o", "", "CSV output file override")
		listFlag    = flag.Bool("list", false, "List serial ports and exit")
		saveFlag    = flag.Bool("save-config", false, "Write the effective configuration to -config and exit")
		verboseFlag = flag.Bool("v", false, "Debug logging")
		quantFlag   = flag.String("q", "", "Comma-separated quantities to log per sample with -v (e.g., ph,chlorine; default all)")
	)
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})
	if *verboseFlag {
		log.SetLevel(log.DebugLevel)
	}

	if *listFlag {
		if err := listPorts(); err != nil {
			log.Fatal(err)
		}
		return
	}

	logged, err := parseQuantities(*quantFlag)
	if err != nil {
		log.Fatal(err)
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *metricsFlag != "" {
		cfg.Metrics.Listen = *metricsFlag
	}
	if *outputFlag != "" {
		cfg.Recorder.File = *outputFlag
	}

	if *saveFlag {
		if err := cfg.Save(*configFlag); err != nil {
			log.Fatal(err)
		}
		log.Infof("Configuration written to %s", *configFlag)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	newDevice := func() station.Device {
		if *mockFlag {
			log.Info("Using mocked device")
			return station.NewMock(cfg)
		}
		log.Infof("Connecting to serial port: %s", cfg.Serial.Port)
		return station.New(cfg.Serial.Port, cfg.Serial.BaudRate, station.DefaultBufferSize)
	}

	if err := run(ctx, cfg, newDevice, logged); err != nil {
		log.Fatal(err)
	}
}

// parseQuantities parses a comma-separated list of quantity names.
// An empty list selects every quantity.
func parseQuantities(s string) ([]channel.Quantity, error) {
	if strings.TrimSpace(s) == "" {
		return channel.Quantities[:], nil
	}

	var out []channel.Quantity
	for _, name := range strings.Split(s, ",") {
		q, err := channel.ParseQuantity(name)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

func listPorts() error {
	ports, err := station.Ports()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found")
	}
	for _, p := range ports {
		fmt.Println(p.Name)
	}
	return nil
}

// run conditions samples until ctx is cancelled or the metrics server fails.
// When the device stops streaming it is replaced with a fresh one from
// newDevice after cfg.Serial.ReconnectDelay and the filters start over; a
// zero delay makes run return instead.
func run(ctx context.Context, cfg *config.Config, newDevice func() station.Device, logged []channel.Quantity) error {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	srv, srvErr := serveMetrics(cfg.Metrics.Listen, reg)
	if srv != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warnf("Metrics server shutdown: %v", err)
			}
		}()
	}

	p := channel.New(cfg)
	rec := recorder.New(cfg.Recorder.File, cfg.Recorder.Interval)
	log.Infof("Saving data to %s every %s", cfg.Recorder.File, cfg.Recorder.Interval)

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			log.Infof("Reconnecting in %s", cfg.Serial.ReconnectDelay)
			select {
			case <-ctx.Done():
				return nil
			case err := <-srvErr:
				return fmt.Errorf("metrics server: %w", err)
			case <-time.After(cfg.Serial.ReconnectDelay):
			}
		}

		device := newDevice()
		if err := device.Connect(); err != nil {
			if attempt == 0 || cfg.Serial.ReconnectDelay <= 0 {
				return fmt.Errorf("failed to connect to device: %w", err)
			}
			log.Warnf("Failed to reconnect: %v", err)
			continue
		}
		if attempt > 0 {
			p.Reset()
			log.Info("Reconnected, filters reset")
		}

		chain := startMeasurementChain(device, p, rec, m, logged)

		var runErr error
		select {
		case <-ctx.Done():
			log.Info("Interrupted, shutting down")
		case err := <-srvErr:
			runErr = fmt.Errorf("metrics server: %w", err)
		case <-chain.recorderDone:
			log.Warn("Device stopped streaming")
		}

		if err := closeMeasurementChain(chain); err != nil && runErr == nil {
			runErr = err
		}
		if runErr != nil || ctx.Err() != nil || cfg.Serial.ReconnectDelay <= 0 {
			return runErr
		}
	}
}

// serveMetrics starts the metrics endpoint. A listen failure is delivered on
// the returned channel. Both results are nil when addr is empty.
func serveMetrics(addr string, reg *prometheus.Registry) (*http.Server, <-chan error) {
	if addr == "" {
		return nil, nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Infof("Serving metrics on %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	return srv, errc
}
