package types

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// SuiteConfig is the optional YAML file that selects, orders and tunes the
// checks of a run. When absent the compiled-in defaults run as registered.
type SuiteConfig struct {
	Suite  string        `yaml:"suite"`
	Checks []CheckConfig `yaml:"checks,omitempty"`
}

// CheckConfig references a registered check by ID and overrides its settings
type CheckConfig struct {
	ID       string    `yaml:"id"`
	Disabled bool      `yaml:"disabled,omitempty"`
	Timeout  *Duration `yaml:"timeout,omitempty"`
}

// Duration wraps time.Duration so suite files can use human-readable values
// like "30s" as well as raw nanosecond integers.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration %v: %w", value.Value, err)
	}
	*d = Duration(n)
	return nil
}

// Std returns the wrapped time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
