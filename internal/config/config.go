// Package config defines the configuration types and defaults for deflint.
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/donaldgifford/deflint/internal/cop"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Color modes accepted by run.color.
const (
	ColorAuto = "auto"
	ColorOn   = "on"
	ColorOff  = "off"
)

// Config is the top-level configuration.
type Config struct {
	Run   RunConfig             `yaml:"run" toml:"run"`
	Rules map[string]RuleConfig `yaml:"rules" toml:"rules"`
}

// RunConfig holds settings for a whole run.
type RunConfig struct {
	// Jobs is the number of files inspected in parallel; 0 means GOMAXPROCS.
	Jobs int `yaml:"jobs" toml:"jobs"`
	// FailLevel is the lowest severity that makes the run exit 1.
	FailLevel string `yaml:"fail_level" toml:"fail_level"`
	Color     string `yaml:"color" toml:"color"`
}

// RuleConfig holds the settings of one rule. Unset fields keep the rule's
// defaults.
type RuleConfig struct {
	Enabled  *bool  `yaml:"enabled" toml:"enabled"`
	Severity string `yaml:"severity" toml:"severity"`
	Message  string `yaml:"message" toml:"message"`
}

// DefaultConfig returns a Config with all default values.
func DefaultConfig() *Config {
	return &Config{
		Run: RunConfig{
			Jobs:      0,
			FailLevel: cop.SeverityConvention.String(),
			Color:     ColorAuto,
		},
		Rules: map[string]RuleConfig{},
	}
}

// Validate checks enumerated values and ranges.
func (c *Config) Validate() error {
	if c.Run.Jobs < 0 {
		return fmt.Errorf("%w: run.jobs must not be negative, got %d", ErrInvalid, c.Run.Jobs)
	}
	if _, err := cop.ParseSeverity(c.Run.FailLevel); err != nil {
		return fmt.Errorf("%w: run.fail_level: %w", ErrInvalid, err)
	}
	switch c.Run.Color {
	case ColorAuto, ColorOn, ColorOff:
	default:
		return fmt.Errorf("%w: run.color must be auto, on or off, got %q", ErrInvalid, c.Run.Color)
	}
	for _, name := range c.RuleNames() {
		rc := c.Rules[name]
		if rc.Severity == "" {
			continue
		}
		if _, err := cop.ParseSeverity(rc.Severity); err != nil {
			return fmt.Errorf("%w: rules.%s.severity: %w", ErrInvalid, name, err)
		}
	}
	return nil
}

// FailLevel returns the parsed run.fail_level.
func (c *Config) FailLevel() (cop.Severity, error) {
	return cop.ParseSeverity(c.Run.FailLevel)
}

// RuleNames returns the configured rule names, sorted.
func (c *Config) RuleNames() []string {
	names := make([]string, 0, len(c.Rules))
	for name := range c.Rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RuleSettings resolves every configured rule onto cop.DefaultSettings.
func (c *Config) RuleSettings() (map[string]cop.Settings, error) {
	out := make(map[string]cop.Settings, len(c.Rules))
	for name, rc := range c.Rules {
		s := cop.DefaultSettings()
		if rc.Enabled != nil {
			s.Enabled = *rc.Enabled
		}
		if rc.Severity != "" {
			sev, err := cop.ParseSeverity(rc.Severity)
			if err != nil {
				return nil, fmt.Errorf("rules.%s.severity: %w", name, err)
			}
			s.Severity = sev
		}
		s.Message = strings.TrimSpace(rc.Message)
		out[name] = s
	}
	return out, nil
}
