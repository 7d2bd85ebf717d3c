package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/itohio/goaqua/pkg/calibration"
	"github.com/itohio/goaqua/pkg/filter"
)

// Config represents the application configuration.
type Config struct {
	Serial   SerialConfig   `yaml:"serial"`
	Channels ChannelsConfig `yaml:"channels"`
	Filters  FiltersConfig  `yaml:"filters"`
	Recorder RecorderConfig `yaml:"recorder"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Mock     MockConfig     `yaml:"mock"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port           string        `yaml:"port"`
	BaudRate       int           `yaml:"baud_rate"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"` // Wait before reconnecting after the stream stops, 0 exits instead
}

// ChannelsConfig contains one entry per monitored quantity.
type ChannelsConfig struct {
	PH        ChannelConfig `yaml:"ph"`
	Turbidity ChannelConfig `yaml:"turbidity"`
	Color     ChannelConfig `yaml:"color"`
	Chlorine  ChannelConfig `yaml:"chlorine"`
}

// ChannelConfig binds a quantity to an ADC pin and its calibration.
type ChannelConfig struct {
	Pin         int                `yaml:"pin"`
	Calibration calibration.Linear `yaml:"calibration"`
}

// FiltersConfig contains filter parameters.
type FiltersConfig struct {
	Recursive       RecursiveConfig `yaml:"recursive"`
	Window          WindowConfig    `yaml:"window"`
	RejectNonFinite bool            `yaml:"reject_non_finite"` // Drop NaN/Inf before filtering (off by default)
}

// RecursiveConfig contains the priors of the pH estimator.
type RecursiveConfig struct {
	Estimate         float64 `yaml:"estimate"`
	ErrorEstimate    float64 `yaml:"error_estimate"`
	ErrorMeasurement float64 `yaml:"error_measurement"`
}

// WindowConfig contains the window averager parameters.
type WindowConfig struct {
	Size     int     `yaml:"size"`
	Emphasis float64 `yaml:"emphasis"`
}

// RecorderConfig contains CSV recorder parameters.
type RecorderConfig struct {
	File     string        `yaml:"file"`
	Interval time.Duration `yaml:"interval"` // How often buffered records are appended to File
}

// MetricsConfig contains Prometheus exposition parameters.
type MetricsConfig struct {
	Listen string `yaml:"listen"` // Empty disables the HTTP endpoint
}

// MockConfig contains mock device configuration.
type MockConfig struct {
	PH         float64       `yaml:"ph"`          // Simulated pH
	Turbidity  float64       `yaml:"turbidity"`   // Simulated turbidity
	Color      float64       `yaml:"color"`       // Simulated color
	Chlorine   float64       `yaml:"chlorine"`    // Simulated free chlorine (mg/L)
	NoiseLevel float64       `yaml:"noise_level"` // Noise amplitude in ADC counts
	SampleRate time.Duration `yaml:"sample_rate"` // Sample rate
	Seed       int64         `yaml:"seed"`        // Noise seed, 0 picks one from the clock
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:           "COM3", // Default for Windows, should be "/dev/ttyACM0" on Linux/Mac
			BaudRate:       115200,
			ReconnectDelay: 5 * time.Second,
		},
		Channels: ChannelsConfig{
			PH:        ChannelConfig{Pin: 0, Calibration: calibration.PH()},
			Turbidity: ChannelConfig{Pin: 1, Calibration: calibration.Turbidity()},
			Color:     ChannelConfig{Pin: 2, Calibration: calibration.Color()},
			Chlorine:  ChannelConfig{Pin: 3, Calibration: calibration.Chlorine()},
		},
		Filters: FiltersConfig{
			Recursive: RecursiveConfig{
				Estimate:         filter.DefaultEstimate,
				ErrorEstimate:    filter.DefaultErrorEstimate,
				ErrorMeasurement: filter.DefaultErrorMeasurement,
			},
			Window: WindowConfig{
				Size:     filter.DefaultWindowSize,
				Emphasis: filter.DefaultEmphasis,
			},
			RejectNonFinite: false,
		},
		Recorder: RecorderConfig{
			File:     "water_treatment_data.csv",
			Interval: 5 * time.Minute,
		},
		Metrics: MetricsConfig{
			Listen: ":9108",
		},
		Mock: MockConfig{
			PH:         7.2,
			Turbidity:  1.5,
			Color:      12.0,
			Chlorine:   0.8,
			NoiseLevel: 40,
			SampleRate: 100 * time.Millisecond, // 10 Hz
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults fills in fields a partial file left at their zero value.
// Calibration offsets and pins may legitimately be zero and are left alone.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	ensureCalibration(&c.Channels.PH.Calibration, def.Channels.PH.Calibration)
	ensureCalibration(&c.Channels.Turbidity.Calibration, def.Channels.Turbidity.Calibration)
	ensureCalibration(&c.Channels.Color.Calibration, def.Channels.Color.Calibration)
	ensureCalibration(&c.Channels.Chlorine.Calibration, def.Channels.Chlorine.Calibration)

	if c.Filters.Recursive.ErrorEstimate <= 0 {
		c.Filters.Recursive.ErrorEstimate = def.Filters.Recursive.ErrorEstimate
	}
	if c.Filters.Recursive.ErrorMeasurement <= 0 {
		c.Filters.Recursive.ErrorMeasurement = def.Filters.Recursive.ErrorMeasurement
	}
	if c.Filters.Window.Size <= 0 {
		c.Filters.Window.Size = def.Filters.Window.Size
	}
	if c.Filters.Window.Emphasis <= 0 {
		c.Filters.Window.Emphasis = def.Filters.Window.Emphasis
	}

	if c.Recorder.File == "" {
		c.Recorder.File = def.Recorder.File
	}
	if c.Recorder.Interval == 0 {
		c.Recorder.Interval = def.Recorder.Interval
	}

	if c.Mock.SampleRate == 0 {
		c.Mock.SampleRate = def.Mock.SampleRate
	}
}

// ensureCalibration restores a calibration whose span or gain is missing.
func ensureCalibration(c *calibration.Linear, def calibration.Linear) {
	if c.Span == 0 {
		c.Span = def.Span
	}
	if c.Gain == 0 {
		c.Gain = def.Gain
	}
}
