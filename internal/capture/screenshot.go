package capture

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/raysh454/vigil/internal/interfaces"
)

var errEmptyScreenshot = errors.New("output file missing or empty")

// CaptureScreenshot renders the page at url and writes a PNG to outputPath.
// Providers are tried in configured order and each one gets its own full
// retry cycle before the next is consulted. Success requires the output file
// to exist and be non-empty.
func (e *Engine) CaptureScreenshot(ctx context.Context, pageURL, outputPath string) bool {
	if !e.cfg.ScreenshotEnabled {
		e.logger.Info("screenshot capture disabled",
			interfaces.Field{Key: "url", Value: pageURL})
		return false
	}

	for _, provider := range e.providers {
		if e.captureWithRetries(ctx, provider, pageURL, outputPath) {
			return true
		}
		e.logger.Warn("screenshot provider failed, trying next",
			interfaces.Field{Key: "provider", Value: provider.Name()},
			interfaces.Field{Key: "url", Value: pageURL})
	}

	e.logger.Error("all screenshot providers failed",
		interfaces.Field{Key: "url", Value: pageURL})
	return false
}

func (e *Engine) captureWithRetries(ctx context.Context, provider interfaces.ScreenshotProvider, pageURL, outputPath string) bool {
	delay := e.retryDelay()
	for attempt := 0; attempt < e.cfg.MaxRetries; attempt++ {
		err := provider.Capture(ctx, pageURL, outputPath)
		if err == nil {
			info, statErr := os.Stat(outputPath)
			if statErr == nil && info.Size() > 0 {
				return true
			}
			err = errEmptyScreenshot
		}

		e.logger.Warn("screenshot attempt failed",
			interfaces.Field{Key: "provider", Value: provider.Name()},
			interfaces.Field{Key: "url", Value: pageURL},
			interfaces.Field{Key: "attempt", Value: attempt + 1},
			interfaces.Field{Key: "error", Value: err.Error()})

		if attempt < e.cfg.MaxRetries-1 {
			e.sleep(delay)
			delay = time.Duration(float64(delay) * e.cfg.RetryBackoffMultiplier)
		}
	}
	return false
}
