package interfaces

import "context"

// CaptureEngine is the contract for acquiring page content and artifacts.
// Fetch and screenshot methods report success as a boolean rather than an
// error: retry policy and fallback are the implementation's responsibility,
// and callers only branch on the outcome.
type CaptureEngine interface {
	// FetchContent retrieves the page HTML. ok is false when every attempt
	// failed or the target answered with a non-retryable client error.
	FetchContent(ctx context.Context, url string) (content string, ok bool)

	// ContentChanged reports whether two HTML payloads differ.
	ContentChanged(previous, current string) bool

	// CaptureScreenshot renders the page to an image at outputPath.
	// Returns false when screenshots are disabled or every provider failed.
	CaptureScreenshot(ctx context.Context, url, outputPath string) bool

	// ExtractAssetURLs lists the asset references found in the HTML,
	// resolved against baseURL. Unparseable markup yields an empty list.
	ExtractAssetURLs(html, baseURL string) []string

	// DownloadAssets fetches the page's assets into outputDir/assets and
	// returns the filenames written. Individual asset failures are skipped.
	DownloadAssets(ctx context.Context, html, baseURL, outputDir string) []string
}

// ScreenshotProvider renders a single page to an image file. Providers are
// chained by the capture engine; each failed provider is retried on its own
// before the next one is consulted.
type ScreenshotProvider interface {
	// Name identifies the provider in logs and registry lookups.
	Name() string

	// Capture renders url and writes the image to outputPath.
	Capture(ctx context.Context, url, outputPath string) error
}
