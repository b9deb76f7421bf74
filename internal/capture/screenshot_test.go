package capture_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/raysh454/vigil/internal/capture"
	"github.com/raysh454/vigil/internal/interfaces"
	"github.com/raysh454/vigil/internal/testutil"
)

// fastRetryConfig removes backoff pauses so provider retries run instantly.
func fastRetryConfig() capture.Config {
	cfg := capture.DefaultConfig()
	cfg.RetryDelaySeconds = 0
	return cfg
}

// ─── Provider chain ────────────────────────────────────────────────────

func TestCaptureScreenshot_DisabledSkipsProviders(t *testing.T) {
	t.Parallel()
	provider := &testutil.DummyProvider{ProviderName: "primary"}
	cfg := fastRetryConfig()
	cfg.ScreenshotEnabled = false
	engine, logger := newCaptureEngine(t, cfg, []interfaces.ScreenshotProvider{provider})

	outputPath := filepath.Join(t.TempDir(), "screenshot.png")
	if engine.CaptureScreenshot(context.Background(), "https://example.com/", outputPath) {
		t.Fatal("disabled screenshots must report failure")
	}
	if provider.CallCount() != 0 {
		t.Errorf("disabled screenshots must not invoke providers, got %d calls", provider.CallCount())
	}
	if len(logger.Infos) == 0 {
		t.Error("expected an informational log for the disabled skip")
	}
}

func TestCaptureScreenshot_PrimarySucceeds(t *testing.T) {
	t.Parallel()
	primary := &testutil.DummyProvider{ProviderName: "primary"}
	secondary := &testutil.DummyProvider{ProviderName: "secondary"}
	engine, _ := newCaptureEngine(t, fastRetryConfig(), []interfaces.ScreenshotProvider{primary, secondary})

	outputPath := filepath.Join(t.TempDir(), "screenshot.png")
	if !engine.CaptureScreenshot(context.Background(), "https://example.com/", outputPath) {
		t.Fatal("expected capture to succeed")
	}
	if primary.CallCount() != 1 {
		t.Errorf("expected a single primary attempt, got %d", primary.CallCount())
	}
	if secondary.CallCount() != 0 {
		t.Errorf("secondary must stay idle when primary succeeds, got %d calls", secondary.CallCount())
	}
	info, err := os.Stat(outputPath)
	if err != nil || info.Size() == 0 {
		t.Errorf("expected a non-empty screenshot file, err=%v", err)
	}
}

func TestCaptureScreenshot_FallsBackAfterRetries(t *testing.T) {
	t.Parallel()
	primary := &testutil.DummyProvider{ProviderName: "primary", Err: errors.New("browser crashed")}
	secondary := &testutil.DummyProvider{ProviderName: "secondary"}
	engine, logger := newCaptureEngine(t, fastRetryConfig(), []interfaces.ScreenshotProvider{primary, secondary})

	outputPath := filepath.Join(t.TempDir(), "screenshot.png")
	if !engine.CaptureScreenshot(context.Background(), "https://example.com/", outputPath) {
		t.Fatal("expected fallback capture to succeed")
	}
	if primary.CallCount() != 3 {
		t.Errorf("primary must exhaust its retry cycle, got %d calls", primary.CallCount())
	}
	if secondary.CallCount() != 1 {
		t.Errorf("expected a single secondary attempt, got %d", secondary.CallCount())
	}

	fellBack := false
	for _, msg := range logger.Warns {
		if msg == "screenshot provider failed, trying next" {
			fellBack = true
		}
	}
	if !fellBack {
		t.Errorf("expected a fallback warning, got %v", logger.Warns)
	}
}

func TestCaptureScreenshot_EmptyOutputCountsAsFailure(t *testing.T) {
	t.Parallel()
	primary := &testutil.DummyProvider{ProviderName: "primary", WriteEmpty: true}
	secondary := &testutil.DummyProvider{ProviderName: "secondary", WriteEmpty: true}
	engine, logger := newCaptureEngine(t, fastRetryConfig(), []interfaces.ScreenshotProvider{primary, secondary})

	outputPath := filepath.Join(t.TempDir(), "screenshot.png")
	if engine.CaptureScreenshot(context.Background(), "https://example.com/", outputPath) {
		t.Fatal("empty output files must count as failure")
	}
	if primary.CallCount() != 3 || secondary.CallCount() != 3 {
		t.Errorf("both providers must exhaust retries, got %d and %d", primary.CallCount(), secondary.CallCount())
	}

	exhausted := false
	for _, msg := range logger.Errors {
		if msg == "all screenshot providers failed" {
			exhausted = true
		}
	}
	if !exhausted {
		t.Errorf("expected chain exhaustion error, got %v", logger.Errors)
	}
}

func TestCaptureScreenshot_NoProvidersConfigured(t *testing.T) {
	t.Parallel()
	engine, logger := newCaptureEngine(t, fastRetryConfig(), nil)

	outputPath := filepath.Join(t.TempDir(), "screenshot.png")
	if engine.CaptureScreenshot(context.Background(), "https://example.com/", outputPath) {
		t.Fatal("capture without providers must fail")
	}
	if len(logger.Errors) == 0 {
		t.Error("expected chain exhaustion error")
	}
}
