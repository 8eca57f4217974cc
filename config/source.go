package config

// ConfigSource is implemented by every configuration origin (files, environment variables)
type ConfigSource interface {
	// Name for logs and debugging
	Name() string

	// Priority, higher wins. Conventional values:
	// - config.yaml: 10
	// - <env>.yaml: 20
	// - environment variables: 50
	Priority() int

	// Load returns dot-separated keys, such as "signal.metrics.enabled"
	Load() (map[string]interface{}, error)
}
