package driven

// ConfigStore provides read access to the settings file.
// Keys use dot notation for nested tables, e.g. "server.port".
type ConfigStore interface {
	// Get retrieves a configuration value by key.
	// Returns the value and a boolean indicating if the key exists.
	Get(key string) (any, bool)

	// GetString retrieves a string configuration value.
	// Returns empty string if key doesn't exist or isn't a string.
	GetString(key string) string

	// GetInt retrieves an integer configuration value.
	// Returns 0 if key doesn't exist or isn't an integer.
	GetInt(key string) int

	// Load reads configuration from storage.
	Load() error

	// Path returns the configuration file path.
	Path() string
}
