package capture

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/raysh454/vigil/internal/interfaces"
)

// networkIdleAfter is how long the network must stay quiet before the page
// is considered fully rendered.
const networkIdleAfter = 2 * time.Second

// ChromedpProvider renders pages in a headless Chrome driven over the
// DevTools protocol. It is the primary screenshot provider.
type ChromedpProvider struct {
	cfg    Config
	logger interfaces.Logger
}

// NewChromedpProvider constructs the chromedp-backed provider.
func NewChromedpProvider(cfg Config, logger interfaces.Logger) (interfaces.ScreenshotProvider, error) {
	if logger == nil {
		return nil, fmt.Errorf("chromedp provider: nil logger provided")
	}
	return &ChromedpProvider{
		cfg:    cfg,
		logger: logger.With(interfaces.Field{Key: "component", Value: "screenshot.chromedp"}),
	}, nil
}

func (p *ChromedpProvider) Name() string { return "chromedp" }

// Capture navigates to pageURL, waits for the network to go idle and writes
// a full-page PNG to outputPath.
func (p *ChromedpProvider) Capture(ctx context.Context, pageURL, outputPath string) error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(p.cfg.UserAgent),
		chromedp.WindowSize(p.cfg.ScreenshotWidth, p.cfg.ScreenshotHeight),
		chromedp.Flag("headless", p.cfg.BrowserHeadless),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, time.Duration(p.cfg.TimeoutSeconds)*time.Second)
	defer cancelTimeout()

	waitIdleChan := waitNetworkIdle(browserCtx, networkIdleAfter)

	err := chromedp.Run(browserCtx,
		network.Enable(),
		chromedp.EmulateViewport(int64(p.cfg.ScreenshotWidth), int64(p.cfg.ScreenshotHeight)),
		chromedp.Navigate(pageURL),
	)
	if err != nil {
		return fmt.Errorf("navigate %s: %w", pageURL, err)
	}

	select {
	case <-waitIdleChan:
	case <-browserCtx.Done():
		return fmt.Errorf("waiting for network idle on %s: %w", pageURL, browserCtx.Err())
	}

	var buf []byte
	err = chromedp.Run(browserCtx,
		chromedp.FullScreenshot(&buf, 100),
	)
	if err != nil {
		return fmt.Errorf("capture %s: %w", pageURL, err)
	}

	if err := os.WriteFile(outputPath, buf, 0o644); err != nil {
		return fmt.Errorf("write screenshot: %w", err)
	}
	return nil
}

// waitNetworkIdle returns a channel that closes once no network requests
// have been in flight for idleAfter. The timer is armed immediately so pages
// with no subresources still go idle, and re-armed whenever the in-flight
// count drops back to zero.
func waitNetworkIdle(ctx context.Context, idleAfter time.Duration) chan struct{} {
	idleChan := make(chan struct{})
	var activeReqs int32
	var timer *time.Timer
	var timerMutex sync.Mutex
	var once sync.Once

	startTimer := func() {
		timerMutex.Lock()
		defer timerMutex.Unlock()

		if timer != nil {
			timer.Stop()
		}

		timer = time.AfterFunc(idleAfter, func() {
			if atomic.LoadInt32(&activeReqs) == 0 {
				once.Do(func() {
					close(idleChan)
				})
			}
		})
	}

	startTimer()

	chromedp.ListenTarget(ctx,
		func(ev any) {
			switch ev.(type) {
			case *network.EventRequestWillBeSent:
				atomic.AddInt32(&activeReqs, 1)
			case *network.EventLoadingFinished, *network.EventLoadingFailed:
				if atomic.AddInt32(&activeReqs, -1) <= 0 {
					startTimer()
				}
			}
		})

	return idleChan
}
