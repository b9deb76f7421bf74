package capture

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/raysh454/vigil/internal/testutil"
)

func newTestEngine(t *testing.T, cfg Config) (*Engine, *testutil.DummyLogger) {
	t.Helper()
	logger := &testutil.DummyLogger{}
	engine, err := NewEngine(cfg, nil, logger)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return engine, logger
}

// recordSleeps replaces the engine's sleep hook so backoff pauses are
// captured instead of slept.
func recordSleeps(engine *Engine) *[]time.Duration {
	sleeps := &[]time.Duration{}
	engine.sleep = func(d time.Duration) {
		*sleeps = append(*sleeps, d)
	}
	return sleeps
}

func containsMessage(entries []string, want string) bool {
	for _, entry := range entries {
		if entry == want {
			return true
		}
	}
	return false
}

// ─── Fetch retry behavior ──────────────────────────────────────────────

func TestFetchContent_RetriesServerErrorsWithBackoff(t *testing.T) {
	t.Parallel()
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	engine, logger := newTestEngine(t, DefaultConfig())
	sleeps := recordSleeps(engine)

	content, ok := engine.FetchContent(context.Background(), srv.URL)
	if ok || content != "" {
		t.Fatalf("expected failure, got ok=%v content=%q", ok, content)
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
	if len(*sleeps) != 2 || (*sleeps)[0] != time.Second || (*sleeps)[1] != 2*time.Second {
		t.Errorf("expected backoff sleeps [1s 2s], got %v", *sleeps)
	}
	if !containsMessage(logger.Errors, "failed to fetch page after retries") {
		t.Errorf("expected exhaustion error log, got %v", logger.Errors)
	}
}

func TestFetchContent_RecoversMidCycle(t *testing.T) {
	t.Parallel()
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != DefaultUserAgent {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("<html>recovered</html>"))
	}))
	defer srv.Close()

	engine, _ := newTestEngine(t, DefaultConfig())
	sleeps := recordSleeps(engine)

	content, ok := engine.FetchContent(context.Background(), srv.URL)
	if !ok {
		t.Fatal("expected fetch to succeed on the third attempt")
	}
	if content != "<html>recovered</html>" {
		t.Errorf("unexpected content %q", content)
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
	if len(*sleeps) != 2 {
		t.Errorf("expected 2 backoff sleeps, got %v", *sleeps)
	}
}

func TestFetchContent_ClientErrorTerminal(t *testing.T) {
	t.Parallel()
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	engine, logger := newTestEngine(t, DefaultConfig())
	sleeps := recordSleeps(engine)

	if _, ok := engine.FetchContent(context.Background(), srv.URL); ok {
		t.Fatal("expected failure on 404")
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Errorf("expected a single attempt, got %d", got)
	}
	if len(*sleeps) != 0 {
		t.Errorf("expected no backoff sleeps, got %v", *sleeps)
	}
	if !containsMessage(logger.Warns, "fetch rejected with client error") {
		t.Errorf("expected client error warning, got %v", logger.Warns)
	}
}

func TestFetchContent_ConnectionRefusedRetries(t *testing.T) {
	t.Parallel()
	engine, _ := newTestEngine(t, DefaultConfig())
	sleeps := recordSleeps(engine)

	// Nothing listens on port 1; every dial fails immediately.
	if _, ok := engine.FetchContent(context.Background(), "http://127.0.0.1:1/"); ok {
		t.Fatal("expected failure against a closed port")
	}
	if len(*sleeps) != 2 {
		t.Errorf("expected 2 backoff sleeps, got %v", *sleeps)
	}
}

func TestFetchContent_UnknownSchemeTerminal(t *testing.T) {
	t.Parallel()
	engine, logger := newTestEngine(t, DefaultConfig())
	sleeps := recordSleeps(engine)

	if _, ok := engine.FetchContent(context.Background(), "ftp://example.com/page"); ok {
		t.Fatal("expected failure for unsupported scheme")
	}
	if len(*sleeps) != 0 {
		t.Errorf("expected no retries, got sleeps %v", *sleeps)
	}
	if !containsMessage(logger.Errors, "unexpected error fetching page") {
		t.Errorf("expected unexpected-error log, got %v", logger.Errors)
	}
}

func TestFetchContent_CanceledContextTerminal(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	engine, _ := newTestEngine(t, DefaultConfig())
	sleeps := recordSleeps(engine)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, ok := engine.FetchContent(ctx, srv.URL); ok {
		t.Fatal("expected failure with canceled context")
	}
	if len(*sleeps) != 0 {
		t.Errorf("canceled fetch must not retry, got sleeps %v", *sleeps)
	}
}

// ─── Change detection ──────────────────────────────────────────────────

func TestContentChanged(t *testing.T) {
	t.Parallel()
	engine, _ := newTestEngine(t, DefaultConfig())

	if engine.ContentChanged("<html>same</html>", "<html>same</html>") {
		t.Error("identical payloads must not report a change")
	}
	if !engine.ContentChanged("<html>old</html>", "<html>new</html>") {
		t.Error("differing payloads must report a change")
	}
	if !engine.ContentChanged("", "<html></html>") {
		t.Error("empty previous payload must differ from non-empty current")
	}
}

// ─── Error classification ──────────────────────────────────────────────

func TestIsTransient(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, true},
		{"net op error", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, true},
		{"plain error", errors.New("boom"), false},
	}
	for _, tc := range cases {
		if got := isTransient(tc.err); got != tc.want {
			t.Errorf("%s: isTransient=%v, want %v", tc.name, got, tc.want)
		}
	}
}

// ─── Asset filenames ───────────────────────────────────────────────────

func TestAssetFilename(t *testing.T) {
	t.Parallel()
	hashed := func(u string) string {
		sum := md5.Sum([]byte(u))
		return hex.EncodeToString(sum[:])
	}
	cases := []struct {
		url  string
		want string
	}{
		{"https://example.com/css/main.css", "main.css"},
		{"https://example.com/js/app.js?v=3", "app.js"},
		{"https://example.com/", hashed("https://example.com/")},
		{"https://example.com", hashed("https://example.com")},
		{"https://example.com/path/", hashed("https://example.com/path/")},
	}
	for _, tc := range cases {
		if got := assetFilename(tc.url); got != tc.want {
			t.Errorf("assetFilename(%q)=%q, want %q", tc.url, got, tc.want)
		}
	}
}

// ─── Constructor validation ────────────────────────────────────────────

func TestNewEngine_RejectsBadInput(t *testing.T) {
	t.Parallel()
	if _, err := NewEngine(DefaultConfig(), nil, nil); err == nil {
		t.Error("expected error for nil logger")
	}

	cfg := DefaultConfig()
	cfg.MaxRetries = 0
	if _, err := NewEngine(cfg, nil, &testutil.DummyLogger{}); err == nil {
		t.Error("expected error for zero retries")
	}

	cfg = DefaultConfig()
	cfg.TimeoutSeconds = 0
	if _, err := NewEngine(cfg, nil, &testutil.DummyLogger{}); err == nil {
		t.Error("expected error for zero timeout")
	}
}
