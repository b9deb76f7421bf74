package server

// Config holds the HTTP API settings.
type Config struct {
	// ListenAddr is the HTTP listen address for the API server.
	ListenAddr string `yaml:"listen_addr"`
}

func DefaultConfig() Config {
	return Config{ListenAddr: ":8000"}
}
