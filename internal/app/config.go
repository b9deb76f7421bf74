package app

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/raysh454/vigil/internal/capture"
	"github.com/raysh454/vigil/internal/catalog"
	"github.com/raysh454/vigil/internal/monitor"
	"github.com/raysh454/vigil/internal/scheduler"
	"github.com/raysh454/vigil/internal/server"
	"github.com/raysh454/vigil/internal/storage"
	"github.com/raysh454/vigil/internal/whois"
)

// Config aggregates the per-component settings into the single document the
// daemon reads. Every section maps to one component's own Config so the
// YAML layout mirrors the package layout.
type Config struct {
	Storage   storage.Config   `yaml:"storage"`
	Capture   capture.Config   `yaml:"capture"`
	Monitor   monitor.Config   `yaml:"monitor"`
	Scheduler scheduler.Config `yaml:"scheduler"`
	Server    server.Config    `yaml:"server"`
	Catalog   catalog.Config   `yaml:"catalog"`
	Whois     whois.Config     `yaml:"whois"`
}

// DefaultConfig composes the per-component defaults.
func DefaultConfig() *Config {
	return &Config{
		Storage:   storage.DefaultConfig(),
		Capture:   capture.DefaultConfig(),
		Monitor:   monitor.DefaultConfig(),
		Scheduler: scheduler.DefaultConfig(),
		Server:    server.DefaultConfig(),
		Catalog:   catalog.DefaultConfig(),
		Whois:     whois.DefaultConfig(),
	}
}

// LoadConfig reads a YAML config file over the defaults. An empty path or a
// missing file falls back to the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings no component could run with. Optional
// subsystems (whois, nrd catalog) are allowed to be switched off and are
// not validated here.
func (c *Config) Validate() error {
	if c.Storage.DataDir == "" {
		return errors.New("storage.data_dir must not be empty")
	}
	if c.Server.ListenAddr == "" {
		return errors.New("server.listen_addr must not be empty")
	}
	if c.Capture.TimeoutSeconds < 1 {
		return fmt.Errorf("capture.timeout_seconds must be positive, got %d", c.Capture.TimeoutSeconds)
	}
	if c.Capture.MaxRetries < 1 {
		return fmt.Errorf("capture.max_retries must be positive, got %d", c.Capture.MaxRetries)
	}
	if c.Monitor.MaxDomainsPerGroup < 1 {
		return fmt.Errorf("monitor.max_domains_per_group must be positive, got %d", c.Monitor.MaxDomainsPerGroup)
	}
	if c.Monitor.MinCheckFrequencySeconds < 1 {
		return fmt.Errorf("monitor.min_check_frequency_seconds must be positive, got %d", c.Monitor.MinCheckFrequencySeconds)
	}
	if c.Scheduler.MaxConcurrentChecks < 1 {
		return fmt.Errorf("scheduler.max_concurrent_checks must be positive, got %d", c.Scheduler.MaxConcurrentChecks)
	}
	return nil
}

// Summary returns the effective settings grouped by section, for the
// startup log and for debugging config-file precedence.
func (c *Config) Summary() map[string]any {
	return map[string]any{
		"storage": map[string]any{
			"data_dir": c.Storage.DataDir,
		},
		"capture": map[string]any{
			"timeout_seconds":          c.Capture.TimeoutSeconds,
			"max_retries":              c.Capture.MaxRetries,
			"retry_delay_seconds":      c.Capture.RetryDelaySeconds,
			"retry_backoff_multiplier": c.Capture.RetryBackoffMultiplier,
			"max_asset_size_bytes":     c.Capture.MaxAssetSizeBytes,
			"screenshot_enabled":       c.Capture.ScreenshotEnabled,
			"screenshot_providers":     c.Capture.ScreenshotProviders,
		},
		"monitor": map[string]any{
			"max_domains_per_group":       c.Monitor.MaxDomainsPerGroup,
			"min_check_frequency_seconds": c.Monitor.MinCheckFrequencySeconds,
		},
		"scheduler": map[string]any{
			"max_concurrent_checks": c.Scheduler.MaxConcurrentChecks,
		},
		"server": map[string]any{
			"listen_addr": c.Server.ListenAddr,
		},
		"catalog": map[string]any{
			"enabled":       c.CatalogEnabled(),
			"database_path": c.Catalog.DatabasePath,
			"feed_dir":      c.Catalog.FeedDir,
		},
		"whois": map[string]any{
			"enabled":         c.WhoisEnabled(),
			"timeout_seconds": c.Whois.TimeoutSeconds,
		},
	}
}

// WhoisEnabled reports whether the whois lookup routes should be wired. A
// non-positive timeout switches the subsystem off.
func (c *Config) WhoisEnabled() bool {
	return c.Whois.TimeoutSeconds > 0
}

// CatalogEnabled reports whether the NRD catalog should be wired. An empty
// database path switches the subsystem off.
func (c *Config) CatalogEnabled() bool {
	return c.Catalog.DatabasePath != ""
}
