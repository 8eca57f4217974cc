package component

// ConfigLoader configuration loader interface
//
// Components read their own section through this interface instead of depending on
// a concrete application config struct.
type ConfigLoader interface {
	// Get returns the raw value stored under key (e.g. "signal.name")
	Get(key string) interface{}

	// Unmarshal decodes a whole section into v
	//
	// Example:
	//   var cfg signal.Config
	//   if err := loader.Unmarshal("signal", &cfg); err != nil {
	//       return err
	//   }
	Unmarshal(key string, v interface{}) error

	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool

	// IsSet reports whether key has a value in any source
	IsSet(key string) bool
}
