// Package config loads the YAML description of a controller setup: which
// serial port the hub lives on and which peripherals to bring up, plus
// property values to apply after initialization.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/asi-tiger/tiger-go/pkg/address"
)

// Defaults applied to absent fields.
const (
	DefaultBaudRate = 115200
	DefaultTimeout  = 500 * time.Millisecond
)

// Validation errors.
var (
	ErrNoDevice      = errors.New("port.device is required")
	ErrNoPeripherals = errors.New("at least one peripheral is required")
	ErrDuplicateName = errors.New("duplicate peripheral name")
)

// Config is the root of a setup file.
type Config struct {
	// Port describes the serial connection to the controller.
	Port PortConfig `yaml:"port"`

	// Peripherals lists the devices to initialize, in order.
	Peripherals []PeripheralConfig `yaml:"peripherals"`

	// LogFile is an optional path for the binary event log.
	LogFile string `yaml:"log_file,omitempty"`
}

// PortConfig describes the serial connection.
type PortConfig struct {
	// Device is the serial device path, e.g. /dev/ttyUSB0.
	Device string `yaml:"device"`

	// BaudRate is the line speed. Zero means DefaultBaudRate.
	BaudRate int `yaml:"baud_rate,omitempty"`

	// TimeoutMs is the per-read timeout in milliseconds. Zero means
	// DefaultTimeout.
	TimeoutMs int `yaml:"timeout_ms,omitempty"`
}

// Timeout returns the configured read timeout.
func (p *PortConfig) Timeout() time.Duration {
	if p.TimeoutMs <= 0 {
		return DefaultTimeout
	}
	return time.Duration(p.TimeoutMs) * time.Millisecond
}

// PeripheralConfig describes one device to initialize.
type PeripheralConfig struct {
	// Name is the extended device name, e.g. "XYStage:XY:31".
	Name string `yaml:"name"`

	// Properties are values to apply after the device initializes,
	// keyed by property name.
	Properties map[string]string `yaml:"properties,omitempty"`
}

// Load reads and validates a setup file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse parses and validates setup data.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port.Device == "" {
		return ErrNoDevice
	}
	if len(c.Peripherals) == 0 {
		return ErrNoPeripherals
	}
	seen := make(map[string]bool, len(c.Peripherals))
	for _, p := range c.Peripherals {
		if !address.IsExtended(p.Name) {
			return fmt.Errorf("peripheral %q: %w", p.Name, address.ErrNotExtended)
		}
		if _, err := address.HubAddress(p.Name); err != nil {
			return err
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateName, p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Port.BaudRate <= 0 {
		c.Port.BaudRate = DefaultBaudRate
	}
}
