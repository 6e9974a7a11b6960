package driven

// ConfigStore provides persistent key-value configuration storage.
// Keys use dotted paths, e.g. "llm.provider" or "agent.max_steps".
type ConfigStore interface {
	// Get retrieves a configuration value by key.
	Get(key string) (any, bool)

	// GetString retrieves a string configuration value.
	// Returns empty string if not found or wrong type.
	GetString(key string) string

	// GetInt retrieves an integer configuration value.
	// Returns 0 if not found or wrong type.
	GetInt(key string) int

	// GetBool retrieves a boolean configuration value.
	// Returns false if not found or wrong type.
	GetBool(key string) bool

	// Set stores a configuration value.
	Set(key string, value any)

	// Save persists the configuration.
	Save() error
}
