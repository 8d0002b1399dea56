package crossing

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/anggasct/crossing/pkg/core"
)

// PolicyKind names an admission policy in configuration.
type PolicyKind string

const (
	PolicyStrict  PolicyKind = "strict"
	PolicyBounded PolicyKind = "bounded"
)

// LightConfig holds phase durations for every light.
type LightConfig struct {
	Green  time.Duration `yaml:"green"`
	Yellow time.Duration `yaml:"yellow"`
	Red    time.Duration `yaml:"red"`
	// Stagger offsets lane i's first GREEN by i*(Green+Yellow).
	Stagger bool `yaml:"stagger"`
}

// Config describes one simulation run.
type Config struct {
	Lanes int `yaml:"lanes"`
	// Cars are assigned to lanes at random unless CarsPerLane is set.
	Cars            int           `yaml:"cars"`
	CarsPerLane     int           `yaml:"cars_per_lane"`
	ArrivalInterval time.Duration `yaml:"arrival_interval"`
	Seed            uint64        `yaml:"seed"`

	Light        LightConfig   `yaml:"light"`
	CrossingTime time.Duration `yaml:"crossing_time"`
	Tick         time.Duration `yaml:"tick"`

	Policy         PolicyKind  `yaml:"policy"`
	Capacity       int         `yaml:"capacity"`
	SafetyDistance float64     `yaml:"safety_distance"`
	Spacing        SpacingMode `yaml:"spacing"`

	// WaitWarning logs a warning for cars queued longer than this. Zero disables it.
	WaitWarning time.Duration `yaml:"wait_warning"`
}

// DefaultConfig returns a two-lane strict-exclusion intersection with ten cars.
func DefaultConfig() Config {
	return Config{
		Lanes: 2,
		Cars:  10,
		Seed:  1,
		Light: LightConfig{
			Green:  5 * time.Second,
			Yellow: time.Second,
			Red:    6 * time.Second,
		},
		CrossingTime:   2 * time.Second,
		Tick:           100 * time.Millisecond,
		Policy:         PolicyStrict,
		Capacity:       3,
		SafetyDistance: 0.02,
		Spacing:        SpacingLeader,
		WaitWarning:    30 * time.Second,
	}
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, core.NewConfigurationError("Config", fmt.Sprintf(format, args...)))
	}

	if c.Lanes < 1 {
		bad("lanes must be at least 1, got %d", c.Lanes)
	}
	if c.Cars < 0 {
		bad("cars must not be negative, got %d", c.Cars)
	}
	if c.CarsPerLane < 0 {
		bad("cars_per_lane must not be negative, got %d", c.CarsPerLane)
	}
	if c.ArrivalInterval < 0 {
		bad("arrival_interval must not be negative, got %s", c.ArrivalInterval)
	}
	for _, field := range []struct {
		name string
		d    time.Duration
	}{
		{"light.green", c.Light.Green},
		{"light.yellow", c.Light.Yellow},
		{"light.red", c.Light.Red},
		{"crossing_time", c.CrossingTime},
		{"tick", c.Tick},
	} {
		if field.d <= 0 {
			bad("%s must be positive, got %s", field.name, field.d)
		}
	}
	if c.WaitWarning < 0 {
		bad("wait_warning must not be negative, got %s", c.WaitWarning)
	}

	switch c.Policy {
	case PolicyStrict:
	case PolicyBounded:
		if c.Capacity < 1 {
			bad("capacity must be at least 1, got %d", c.Capacity)
		}
		if c.SafetyDistance <= 0 {
			bad("safety_distance must be positive, got %g", c.SafetyDistance)
		}
		if c.Spacing != "" && c.Spacing != SpacingLeader && c.Spacing != SpacingAll {
			bad("unknown spacing %q", c.Spacing)
		}
	default:
		bad("unknown policy %q", c.Policy)
	}

	return errors.Join(errs...)
}

// TotalCars is the number of cars the run will spawn.
func (c Config) TotalCars() int {
	if c.CarsPerLane > 0 {
		return c.CarsPerLane * c.Lanes
	}
	return c.Cars
}

// Timing returns the light phase durations.
func (c Config) Timing() Timing {
	return Timing{Green: c.Light.Green, Yellow: c.Light.Yellow, Red: c.Light.Red}
}

// ParseConfig decodes YAML over DefaultConfig. Unknown keys are rejected.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads a YAML file with ParseConfig.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return ParseConfig(data)
}
