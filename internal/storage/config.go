package storage

// Config holds the storage layer settings.
type Config struct {
	// DataDir is the root directory for all persisted monitoring state.
	DataDir string `yaml:"data_dir"`
}

// DefaultConfig returns the default storage configuration.
func DefaultConfig() Config {
	return Config{
		DataDir: "./monitoring/data",
	}
}
