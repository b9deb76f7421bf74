package capture

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/raysh454/vigil/internal/interfaces"
)

// Engine fetches page content and artifacts with retry and fallback
// policies. Fetch outcomes are reported as booleans: the engine absorbs
// transient failures internally so callers only see the final result.
type Engine struct {
	cfg       Config
	client    *http.Client
	providers []interfaces.ScreenshotProvider
	logger    interfaces.Logger

	// sleep is swapped out by tests that observe backoff behavior.
	sleep func(time.Duration)
}

var _ interfaces.CaptureEngine = (*Engine)(nil)

// NewEngine constructs a capture engine. The provider slice sets the
// screenshot fallback order and may be empty when screenshots are disabled.
func NewEngine(cfg Config, providers []interfaces.ScreenshotProvider, logger interfaces.Logger) (*Engine, error) {
	if logger == nil {
		return nil, errors.New("capture: nil logger provided")
	}
	if cfg.MaxRetries < 1 {
		return nil, fmt.Errorf("capture: max retries must be positive, got %d", cfg.MaxRetries)
	}
	if cfg.TimeoutSeconds < 1 {
		return nil, fmt.Errorf("capture: timeout must be positive, got %d", cfg.TimeoutSeconds)
	}
	return &Engine{
		cfg:       cfg,
		client:    &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		providers: providers,
		logger:    logger.With(interfaces.Field{Key: "component", Value: "capture"}),
		sleep:     time.Sleep,
	}, nil
}

// FetchContent retrieves the page HTML for url, retrying transient failures
// with exponential backoff. Server errors (5xx), timeouts and connection
// failures are retried; client errors (4xx) and anything unclassified fail
// immediately.
func (e *Engine) FetchContent(ctx context.Context, pageURL string) (string, bool) {
	delay := e.retryDelay()
	for attempt := 0; attempt < e.cfg.MaxRetries; attempt++ {
		content, err := e.fetchPageOnce(ctx, pageURL)
		if err == nil {
			return content, true
		}

		var statusErr *httpStatusError
		switch {
		case errors.As(err, &statusErr) && !statusErr.retryable():
			e.logger.Warn("fetch rejected with client error",
				interfaces.Field{Key: "url", Value: pageURL},
				interfaces.Field{Key: "status", Value: statusErr.code})
			return "", false
		case errors.As(err, &statusErr) || isTransient(err):
			e.logger.Warn("fetch attempt failed",
				interfaces.Field{Key: "url", Value: pageURL},
				interfaces.Field{Key: "attempt", Value: attempt + 1},
				interfaces.Field{Key: "error", Value: err.Error()})
		default:
			e.logger.Error("unexpected error fetching page",
				interfaces.Field{Key: "url", Value: pageURL},
				interfaces.Field{Key: "error", Value: err.Error()})
			return "", false
		}

		if attempt < e.cfg.MaxRetries-1 {
			e.sleep(delay)
			delay = time.Duration(float64(delay) * e.cfg.RetryBackoffMultiplier)
		}
	}

	e.logger.Error("failed to fetch page after retries",
		interfaces.Field{Key: "url", Value: pageURL},
		interfaces.Field{Key: "attempts", Value: e.cfg.MaxRetries})
	return "", false
}

// ContentChanged reports whether two HTML payloads differ, compared by
// SHA-256 digest.
func (e *Engine) ContentChanged(previous, current string) bool {
	return sha256.Sum256([]byte(previous)) != sha256.Sum256([]byte(current))
}

func (e *Engine) fetchPageOnce(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", e.cfg.UserAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &httpStatusError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (e *Engine) retryDelay() time.Duration {
	return time.Duration(e.cfg.RetryDelaySeconds * float64(time.Second))
}

// httpStatusError marks a response that arrived carrying an error status.
type httpStatusError struct {
	code int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("http status %d", e.code)
}

// retryable reports whether the status is worth another attempt. Server-side
// errors may clear up on their own; client errors will not.
func (e *httpStatusError) retryable() bool {
	return e.code >= 500
}

// isTransient classifies transport failures. A canceled context means the
// caller gave up, so it is never retried. *url.Error implements net.Error
// unconditionally and has to be unwrapped before the interface check means
// anything.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true
		}
		err = urlErr.Err
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
