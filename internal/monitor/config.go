package monitor

// Config bounds what a single group creation request may ask for.
type Config struct {
	MaxDomainsPerGroup       int `yaml:"max_domains_per_group"`
	MinCheckFrequencySeconds int `yaml:"min_check_frequency_seconds"`
}

// DefaultConfig returns the monitoring limits used when no config file
// overrides them.
func DefaultConfig() Config {
	return Config{
		MaxDomainsPerGroup:       100,
		MinCheckFrequencySeconds: 60,
	}
}
