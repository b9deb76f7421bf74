package capture

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/raysh454/vigil/internal/interfaces"
)

// RodProvider renders pages with a rod-driven Chromium. It launches its own
// browser process, which makes it the fallback of choice when the chromedp
// provider cannot find or talk to a browser.
type RodProvider struct {
	cfg    Config
	logger interfaces.Logger
}

// NewRodProvider constructs the rod-backed provider.
func NewRodProvider(cfg Config, logger interfaces.Logger) (interfaces.ScreenshotProvider, error) {
	if logger == nil {
		return nil, fmt.Errorf("rod provider: nil logger provided")
	}
	return &RodProvider{
		cfg:    cfg,
		logger: logger.With(interfaces.Field{Key: "component", Value: "screenshot.rod"}),
	}, nil
}

func (p *RodProvider) Name() string { return "rod" }

// Capture launches a browser, renders pageURL and writes a full-page PNG to
// outputPath.
func (p *RodProvider) Capture(ctx context.Context, pageURL, outputPath string) error {
	l := launcher.New().
		Headless(p.cfg.BrowserHeadless).
		Set("no-sandbox", "").
		Set("disable-dev-shm-usage", "").
		Set("disable-gpu", "").
		Set("disable-blink-features", "AutomationControlled")

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	defer l.Cleanup()

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to browser: %w", err)
	}
	defer browser.Close()

	browser = browser.Context(ctx)
	if err := browser.IgnoreCertErrors(true); err != nil {
		p.logger.Warn("failed to ignore certificate errors",
			interfaces.Field{Key: "error", Value: err.Error()})
	}

	page, err := stealth.Page(browser)
	if err != nil {
		return fmt.Errorf("create page: %w", err)
	}
	defer page.Close()

	captureCtx, cancel := context.WithTimeout(ctx, time.Duration(p.cfg.TimeoutSeconds)*time.Second)
	defer cancel()
	page = page.Context(captureCtx)

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: p.cfg.UserAgent}); err != nil {
		p.logger.Warn("failed to override user agent",
			interfaces.Field{Key: "error", Value: err.Error()})
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  p.cfg.ScreenshotWidth,
		Height: p.cfg.ScreenshotHeight,
	}); err != nil {
		p.logger.Warn("failed to set viewport",
			interfaces.Field{Key: "error", Value: err.Error()})
	}

	if err := page.Navigate(pageURL); err != nil {
		return fmt.Errorf("navigate %s: %w", pageURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		p.logger.Warn("page load wait failed, capturing anyway",
			interfaces.Field{Key: "url", Value: pageURL},
			interfaces.Field{Key: "error", Value: err.Error()})
	}

	img, err := page.Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return fmt.Errorf("capture %s: %w", pageURL, err)
	}

	if err := os.WriteFile(outputPath, img, 0o644); err != nil {
		return fmt.Errorf("write screenshot: %w", err)
	}
	return nil
}
