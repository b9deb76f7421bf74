// Package testutil provides shared test doubles for use across package tests.
// All dummies implement the corresponding interfaces from the production code,
// allowing injection into components under test without real I/O or side effects.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/raysh454/vigil/internal/interfaces"
	"github.com/raysh454/vigil/internal/model"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements interfaces.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) Debug(msg string, fields ...interfaces.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *DummyLogger) Info(msg string, fields ...interfaces.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *DummyLogger) Warn(msg string, fields ...interfaces.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *DummyLogger) Error(msg string, fields ...interfaces.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *DummyLogger) With(_ ...interfaces.Field) interfaces.Logger { return l }

// WarnCount returns the number of recorded warnings.
func (l *DummyLogger) WarnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Warns)
}

// ─── CaptureEngine ─────────────────────────────────────────────────────

// DummyEngine implements interfaces.CaptureEngine.
// By default FetchContent returns "<html>ok:<url></html>" and reports success.
// Set FailURLs[url] = true to force a fetch failure for a specific URL, or
// populate Content to control the returned HTML. When Release is non-nil,
// FetchContent blocks until the channel is closed (or the context ends),
// which lets tests hold a dump in flight.
type DummyEngine struct {
	Content    map[string]string
	FailURLs   map[string]bool
	FetchDelay time.Duration
	Release    chan struct{}

	// ScreenshotOK makes CaptureScreenshot write outputPath and succeed.
	ScreenshotOK bool

	// Assets are the filenames DownloadAssets materializes under
	// outputDir/assets.
	Assets []string

	mu              sync.Mutex
	FetchCalls      []string
	ScreenshotCalls []string
}

func (d *DummyEngine) FetchContent(ctx context.Context, url string) (string, bool) {
	d.mu.Lock()
	d.FetchCalls = append(d.FetchCalls, url)
	release := d.Release
	d.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return "", false
		}
	}
	if d.FetchDelay > 0 {
		select {
		case <-time.After(d.FetchDelay):
		case <-ctx.Done():
			return "", false
		}
	}

	if d.FailURLs != nil && d.FailURLs[url] {
		return "", false
	}
	if d.Content != nil {
		if html, ok := d.Content[url]; ok {
			return html, true
		}
	}
	return "<html>ok:" + url + "</html>", true
}

func (d *DummyEngine) ContentChanged(previous, current string) bool {
	return previous != current
}

func (d *DummyEngine) CaptureScreenshot(ctx context.Context, url, outputPath string) bool {
	d.mu.Lock()
	d.ScreenshotCalls = append(d.ScreenshotCalls, url)
	ok := d.ScreenshotOK
	d.mu.Unlock()

	if !ok {
		return false
	}
	return os.WriteFile(outputPath, []byte("dummy-png"), 0o644) == nil
}

func (d *DummyEngine) ExtractAssetURLs(html, baseURL string) []string {
	urls := make([]string, 0, len(d.Assets))
	for _, name := range d.Assets {
		urls = append(urls, baseURL+"/"+name)
	}
	return urls
}

func (d *DummyEngine) DownloadAssets(ctx context.Context, html, baseURL, outputDir string) []string {
	if len(d.Assets) == 0 {
		return nil
	}
	dir := filepath.Join(outputDir, "assets")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil
	}
	written := []string{}
	for _, name := range d.Assets {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("dummy-asset"), 0o644); err == nil {
			written = append(written, name)
		}
	}
	return written
}

// FetchCount returns how many FetchContent calls were recorded.
func (d *DummyEngine) FetchCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.FetchCalls)
}

// ScreenshotCount returns how many CaptureScreenshot calls were recorded.
func (d *DummyEngine) ScreenshotCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.ScreenshotCalls)
}

// ─── ScreenshotProvider ────────────────────────────────────────────────

// DummyProvider implements interfaces.ScreenshotProvider.
// With a nil Err it writes a small file to outputPath; WriteEmpty makes it
// "succeed" while leaving the output zero bytes.
type DummyProvider struct {
	ProviderName string
	Err          error
	WriteEmpty   bool

	mu    sync.Mutex
	Calls int
}

func (p *DummyProvider) Name() string { return p.ProviderName }

func (p *DummyProvider) Capture(ctx context.Context, url, outputPath string) error {
	p.mu.Lock()
	p.Calls++
	p.mu.Unlock()

	if p.Err != nil {
		return p.Err
	}
	data := []byte("dummy-screenshot")
	if p.WriteEmpty {
		data = nil
	}
	return os.WriteFile(outputPath, data, 0o644)
}

// CallCount returns how many Capture calls were recorded.
func (p *DummyProvider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Calls
}

// ─── Dumper ────────────────────────────────────────────────────────────

// DumpCall records one PerformDump invocation.
type DumpCall struct {
	DomainID string
	Trigger  model.TriggerKind
}

// DummyDumper implements interfaces.Dumper with in-memory recording.
type DummyDumper struct {
	Snap *model.Snapshot

	mu    sync.Mutex
	Calls []DumpCall
}

func (d *DummyDumper) PerformDump(_ context.Context, domain *model.Domain, trigger model.TriggerKind) *model.Snapshot {
	d.mu.Lock()
	d.Calls = append(d.Calls, DumpCall{DomainID: domain.ID, Trigger: trigger})
	d.mu.Unlock()

	if d.Snap != nil {
		return d.Snap
	}
	return &model.Snapshot{
		ID:        "dummy-snapshot",
		DomainID:  domain.ID,
		Timestamp: time.Now().UTC(),
		Trigger:   trigger,
		Success:   true,
	}
}

// DumpCalls returns a copy of the recorded calls.
func (d *DummyDumper) DumpCalls() []DumpCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]DumpCall(nil), d.Calls...)
}

// ─── CheckScheduler ────────────────────────────────────────────────────

// DummyScheduler implements interfaces.CheckScheduler with in-memory recording.
type DummyScheduler struct {
	mu          sync.Mutex
	Scheduled   []string
	Unscheduled []string
	Cleared     int
}

func (s *DummyScheduler) Schedule(d *model.Domain) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Scheduled = append(s.Scheduled, d.ID)
}

func (s *DummyScheduler) Unschedule(domainID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Unscheduled = append(s.Unscheduled, domainID)
}

func (s *DummyScheduler) UnscheduleAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Cleared++
}

// ScheduledIDs returns a copy of the recorded Schedule calls.
func (s *DummyScheduler) ScheduledIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.Scheduled...)
}
