package toolhead

import (
	"fmt"
	"math"

	"gopper/motion"

	"gopkg.in/yaml.v3"
)

// Config holds the toolhead's recognised printer.cfg-style options, loaded
// from YAML on the host (the host binary is not tinygo-compiled, so unlike
// standalone/config's encoding/json it can afford a structured-config
// library).
type Config struct {
	MaxVelocity             float64 `yaml:"max_velocity"`
	MaxAccel                float64 `yaml:"max_accel"`
	MaxAccelToDecel         float64 `yaml:"max_accel_to_decel"`
	SquareCornerVelocity    float64 `yaml:"square_corner_velocity"`
	BufferTimeLow           float64 `yaml:"buffer_time_low"`
	BufferTimeHigh          float64 `yaml:"buffer_time_high"`
	BufferTimeStart         float64 `yaml:"buffer_time_start"`
	MoveFlushTime           float64 `yaml:"move_flush_time"`
	Kinematics              string  `yaml:"kinematics"`
}

// DefaultConfig returns the option defaults from the configuration table,
// before any requested_accel_to_decel override is applied.
func DefaultConfig() Config {
	return Config{
		MaxAccelToDecel:      0,
		SquareCornerVelocity: 5.0,
		BufferTimeLow:        1.000,
		BufferTimeHigh:       2.000,
		BufferTimeStart:      0.250,
		MoveFlushTime:        0.050,
	}
}

// LoadConfig parses a YAML toolhead config section, applying DefaultConfig
// first so any option the document omits keeps its default, then
// validating the merged result.
func LoadConfig(yamlData []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(yamlData, &cfg); err != nil {
		return Config{}, fmt.Errorf("toolhead: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces the option bounds, filling MaxAccelToDecel's default
// (max_accel/2) when the config left it unset.
func (c *Config) Validate() error {
	if c.MaxVelocity <= 0 {
		return fmt.Errorf("toolhead: max_velocity must be > 0, got %v", c.MaxVelocity)
	}
	if c.MaxAccel <= 0 {
		return fmt.Errorf("toolhead: max_accel must be > 0, got %v", c.MaxAccel)
	}
	if c.MaxAccelToDecel <= 0 {
		c.MaxAccelToDecel = c.MaxAccel * 0.5
	}
	if c.SquareCornerVelocity < 0 {
		return fmt.Errorf("toolhead: square_corner_velocity must be >= 0, got %v", c.SquareCornerVelocity)
	}
	if c.BufferTimeLow <= 0 {
		return fmt.Errorf("toolhead: buffer_time_low must be > 0, got %v", c.BufferTimeLow)
	}
	if c.BufferTimeHigh <= c.BufferTimeLow {
		return fmt.Errorf("toolhead: buffer_time_high must be > buffer_time_low (%v), got %v", c.BufferTimeLow, c.BufferTimeHigh)
	}
	if c.BufferTimeStart <= 0 {
		return fmt.Errorf("toolhead: buffer_time_start must be > 0, got %v", c.BufferTimeStart)
	}
	if c.MoveFlushTime <= 0 {
		return fmt.Errorf("toolhead: move_flush_time must be > 0, got %v", c.MoveFlushTime)
	}
	return nil
}

// junctionDeviation derives the junction_deviation constant from the
// configured square_corner_velocity and max_accel.
func (c *Config) junctionDeviation() float64 {
	scv2 := c.SquareCornerVelocity * c.SquareCornerVelocity
	return scv2 * (math.Sqrt2 - 1.0) / c.MaxAccel
}

// limits snapshots the current config into the motion.Limits a Move copies
// at construction time.
func (c *Config) limits() motion.Limits {
	return motion.Limits{
		MaxVelocity:       c.MaxVelocity,
		MaxAccel:          c.MaxAccel,
		MaxAccelToDecel:   c.MaxAccelToDecel,
		JunctionDeviation: c.junctionDeviation(),
	}
}
