package signal

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)

// Config signal configuration (section "signal")
type Config struct {
	Enabled bool   `mapstructure:"enabled"`
	Name    string `mapstructure:"name"`

	// ContinueOnUnsubscribe lets the emission go on after a listener returns ErrUnsubscribe
	ContinueOnUnsubscribe bool `mapstructure:"continue_on_unsubscribe"`

	Tracing bool          `mapstructure:"tracing"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Enabled: true,
		Name:    "signal",
		Metrics: MetricsConfig{
			Enabled:         true,
			RecordListeners: true,
		},
	}
}

// Validate implements config.Validator
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name,
			validation.Required,
			validation.Length(1, 64),
			validation.Match(namePattern),
		),
	)
}

// Options converts the configuration into Signal options
func (c Config) Options() []Option {
	return []Option{
		WithName(c.Name),
		WithUnsubscribeHalts(!c.ContinueOnUnsubscribe),
	}
}

// FromConfig creates a Signal from cfg; opts are applied after the configuration
func FromConfig[T any](cfg Config, opts ...Option) *Signal[T] {
	return New[T](append(cfg.Options(), opts...)...)
}
