package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/foundryos/foundry/internal/pattern"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Hub      HubConfig         `yaml:"hub"`
	Archive  ArchiveConfig     `yaml:"archive"`
	Auth     AuthConfig        `yaml:"auth"`
	Learning LearningConfig    `yaml:"learning"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Hub.Validate(); err != nil {
		return err
	}
	if err := c.Archive.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Learning.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// HubConfig holds the manifest hub directory settings. An empty AllowedTypes
// list accepts any project type.
type HubConfig struct {
	Path         string   `yaml:"path"`
	AllowedTypes []string `yaml:"allowed_types"`
}

// Validate validates the hub configuration.
func (c *HubConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// ArchiveConfig holds the snapshot archive database configuration.
type ArchiveConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the archive configuration.
func (c *ArchiveConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// LearningConfig tunes the pattern detector. Threshold is the fractional
// improvement that flags a pattern (0.25 means 25%). An empty Metrics list
// falls back to the detector defaults.
type LearningConfig struct {
	Threshold float64  `yaml:"threshold"`
	Metrics   []string `yaml:"metrics"`
}

// Validate validates the learning configuration.
func (c *LearningConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Threshold, validation.Required, validation.Min(0.01), validation.Max(10.0)),
	); err != nil {
		return err
	}
	for _, m := range c.Metrics {
		if _, ok := pattern.ParseMetric(m); !ok {
			return fmt.Errorf("learning: unknown metric %q", m)
		}
	}
	return nil
}

// TrackedMetrics converts the configured metric names to detector metrics.
// Call Validate first; unknown names are skipped here.
func (c *LearningConfig) TrackedMetrics() []pattern.Metric {
	var out []pattern.Metric
	for _, name := range c.Metrics {
		if m, ok := pattern.ParseMetric(name); ok {
			out = append(out, m)
		}
	}
	return out
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8344,
			},
		},
		Hub: HubConfig{
			Path: "./hub",
		},
		Archive: ArchiveConfig{
			Path: "./foundry.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Learning: LearningConfig{
			Threshold: pattern.DefaultThreshold,
			Metrics:   []string{"completion_rate", "revenue_per_user"},
		},
	}
}
