package app_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/raysh454/vigil/internal/app"
)

func TestLoadConfig_EmptyPathUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := app.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.ListenAddr != ":8000" {
		t.Errorf("unexpected default listen addr %q", cfg.Server.ListenAddr)
	}
	if cfg.Storage.DataDir == "" {
		t.Error("expected a default data dir")
	}
	if cfg.Scheduler.MaxConcurrentChecks != 10 {
		t.Errorf("unexpected default concurrency %d", cfg.Scheduler.MaxConcurrentChecks)
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := app.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Monitor.MinCheckFrequencySeconds != 60 {
		t.Errorf("expected defaults for a missing file, got %+v", cfg.Monitor)
	}
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "vigil.yaml")
	content := `storage:
  data_dir: /srv/vigil
server:
  listen_addr: ":9100"
scheduler:
  max_concurrent_checks: 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := app.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Storage.DataDir != "/srv/vigil" {
		t.Errorf("data dir override lost: %q", cfg.Storage.DataDir)
	}
	if cfg.Server.ListenAddr != ":9100" {
		t.Errorf("listen addr override lost: %q", cfg.Server.ListenAddr)
	}
	if cfg.Scheduler.MaxConcurrentChecks != 3 {
		t.Errorf("scheduler override lost: %d", cfg.Scheduler.MaxConcurrentChecks)
	}

	// Sections the file never mentions keep their defaults.
	if cfg.Capture.MaxRetries != 3 {
		t.Errorf("untouched capture section changed: %+v", cfg.Capture)
	}
	if cfg.Whois.TimeoutSeconds != 30 {
		t.Errorf("untouched whois section changed: %+v", cfg.Whois)
	}
}

func TestLoadConfig_RejectsMalformedYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("storage: [unclosed\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := app.LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		mutate  func(*app.Config)
		wantErr string
	}{
		{"defaults pass", func(c *app.Config) {}, ""},
		{"empty data dir", func(c *app.Config) { c.Storage.DataDir = "" }, "storage.data_dir"},
		{"empty listen addr", func(c *app.Config) { c.Server.ListenAddr = "" }, "server.listen_addr"},
		{"zero capture timeout", func(c *app.Config) { c.Capture.TimeoutSeconds = 0 }, "capture.timeout_seconds"},
		{"zero max retries", func(c *app.Config) { c.Capture.MaxRetries = 0 }, "capture.max_retries"},
		{"zero domains per group", func(c *app.Config) { c.Monitor.MaxDomainsPerGroup = 0 }, "monitor.max_domains_per_group"},
		{"zero min frequency", func(c *app.Config) { c.Monitor.MinCheckFrequencySeconds = 0 }, "monitor.min_check_frequency_seconds"},
		{"zero concurrent checks", func(c *app.Config) { c.Scheduler.MaxConcurrentChecks = 0 }, "scheduler.max_concurrent_checks"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := app.DefaultConfig()
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid config, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error mentioning %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestConfig_SubsystemToggles(t *testing.T) {
	t.Parallel()

	cfg := app.DefaultConfig()
	if !cfg.WhoisEnabled() || !cfg.CatalogEnabled() {
		t.Fatal("defaults should enable the optional subsystems")
	}

	cfg.Whois.TimeoutSeconds = 0
	cfg.Catalog.DatabasePath = ""
	if cfg.WhoisEnabled() {
		t.Error("zero timeout should disable whois")
	}
	if cfg.CatalogEnabled() {
		t.Error("empty database path should disable the catalog")
	}
}

func TestConfig_SummaryReflectsSettings(t *testing.T) {
	t.Parallel()

	cfg := app.DefaultConfig()
	cfg.Storage.DataDir = "/var/lib/vigil"
	cfg.Whois.TimeoutSeconds = 0

	sum := cfg.Summary()

	storageSec, ok := sum["storage"].(map[string]any)
	if !ok {
		t.Fatalf("summary missing storage section: %#v", sum)
	}
	if storageSec["data_dir"] != "/var/lib/vigil" {
		t.Errorf("expected overridden data_dir in summary, got %v", storageSec["data_dir"])
	}

	whoisSec, ok := sum["whois"].(map[string]any)
	if !ok {
		t.Fatalf("summary missing whois section: %#v", sum)
	}
	if whoisSec["enabled"] != false {
		t.Error("summary should report whois disabled when the timeout is zero")
	}
}
