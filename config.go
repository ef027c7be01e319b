package spamex

// Config controls pattern compilation and matching.
//
// Example:
//
//	config := spamex.DefaultConfig()
//	config.Global = true // report every match, not just the first
//	p, err := spamex.CompileWithConfig("<Call/>", config)
type Config struct {
	// Global reports every match instead of stopping after the first.
	// Default: false
	Global bool

	// EnablePrefilter builds an Aho-Corasick automaton over the node types
	// a match requires, used by MayMatch to reject raw input early.
	// Default: true
	EnablePrefilter bool

	// MaxRecursionDepth limits the nesting depth of patterns.
	// Default: 100
	MaxRecursionDepth int

	// MaxBranches caps the number of live match branches at any step;
	// zero disables the limit.
	// Default: 10000
	MaxBranches int
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Global:            false,
		EnablePrefilter:   true,
		MaxRecursionDepth: 100,
		MaxBranches:       10000,
	}
}

// Validate checks if the configuration is valid.
//
// Valid ranges:
//   - MaxRecursionDepth: 10 to 1,000
//   - MaxBranches: 0 to 1,000,000
func (c Config) Validate() error {
	if c.MaxRecursionDepth < 10 || c.MaxRecursionDepth > 1_000 {
		return &ConfigError{
			Field:   "MaxRecursionDepth",
			Message: "must be between 10 and 1,000",
		}
	}
	if c.MaxBranches < 0 || c.MaxBranches > 1_000_000 {
		return &ConfigError{
			Field:   "MaxBranches",
			Message: "must be between 0 and 1,000,000",
		}
	}
	return nil
}

// ConfigError represents an invalid configuration parameter.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "spamex: invalid config: " + e.Field + ": " + e.Message
}
