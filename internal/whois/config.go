package whois

// Config bounds WHOIS lookups.
type Config struct {
	// TimeoutSeconds caps each lookup method: the port-43 round trips
	// (including the referral hop) and the whois subprocess.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

func DefaultConfig() Config {
	return Config{TimeoutSeconds: 30}
}
