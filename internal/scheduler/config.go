package scheduler

// Config bounds the periodic check machinery.
type Config struct {
	MaxConcurrentChecks int `yaml:"max_concurrent_checks"`
}

// DefaultConfig returns the scheduler defaults.
func DefaultConfig() Config {
	return Config{MaxConcurrentChecks: 10}
}
