package capture

// DefaultUserAgent is presented on every page and asset request. Plenty of
// sites serve reduced or blocked content to clients that look like bots.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// Config carries the tunables for page fetching, retry behavior, asset
// downloads and screenshot rendering.
type Config struct {
	UserAgent              string  `yaml:"user_agent"`
	TimeoutSeconds         int     `yaml:"timeout_seconds"`
	MaxRetries             int     `yaml:"max_retries"`
	RetryDelaySeconds      float64 `yaml:"retry_delay_seconds"`
	RetryBackoffMultiplier float64 `yaml:"retry_backoff_multiplier"`
	MaxAssetSizeBytes      int64   `yaml:"max_asset_size_bytes"`

	ScreenshotEnabled   bool     `yaml:"screenshot_enabled"`
	ScreenshotWidth     int      `yaml:"screenshot_width"`
	ScreenshotHeight    int      `yaml:"screenshot_height"`
	BrowserHeadless     bool     `yaml:"browser_headless"`
	ScreenshotProviders []string `yaml:"screenshot_providers"`
}

// DefaultConfig returns the capture defaults.
func DefaultConfig() Config {
	return Config{
		UserAgent:              DefaultUserAgent,
		TimeoutSeconds:         30,
		MaxRetries:             3,
		RetryDelaySeconds:      1.0,
		RetryBackoffMultiplier: 2.0,
		MaxAssetSizeBytes:      50 * 1024 * 1024,
		ScreenshotEnabled:      true,
		ScreenshotWidth:        1920,
		ScreenshotHeight:       1080,
		BrowserHeadless:        true,
		ScreenshotProviders:    []string{"chromedp", "rod"},
	}
}
