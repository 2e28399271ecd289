package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
)

// Renderer fetches pages through a headless browser so JavaScript-built
// sites can be trained from. The browser starts on first use and is shared
// across pages of a crawl; Shutdown releases it.
type Renderer struct {
	mu              sync.Mutex
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	userAgent       string
	waitTime        time.Duration
	timeout         time.Duration
	logger          arbor.ILogger
	initialized     bool
}

func NewRenderer(userAgent string, waitTime, timeout time.Duration, logger arbor.ILogger) *Renderer {
	return &Renderer{
		userAgent: userAgent,
		waitTime:  waitTime,
		timeout:   timeout,
		logger:    logger,
	}
}

// init starts the browser and verifies it responds. Must be called with the
// mutex held.
func (r *Renderer) init() error {
	if r.initialized {
		return nil
	}

	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(r.userAgent),
	)

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

	testCtx, testCancel := context.WithTimeout(browserCtx, 30*time.Second)
	defer testCancel()

	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocatorCancel()
		return fmt.Errorf("browser failed startup test: %w", err)
	}

	r.allocatorCancel = allocatorCancel
	r.browserCtx = browserCtx
	r.browserCancel = browserCancel
	r.initialized = true

	r.logger.Info().
		Str("user_agent", r.userAgent).
		Dur("js_wait_time", r.waitTime).
		Msg("Headless browser started for JavaScript rendering")

	return nil
}

// Fetch navigates to the URL in a fresh tab, waits for JavaScript to settle
// and returns the rendered document HTML.
func (r *Renderer) Fetch(ctx context.Context, pageURL string) (string, error) {
	r.mu.Lock()
	if err := r.init(); err != nil {
		r.mu.Unlock()
		return "", err
	}
	browserCtx := r.browserCtx
	r.mu.Unlock()

	tabCtx, tabCancel := chromedp.NewContext(browserCtx)
	defer tabCancel()

	timeout := r.timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	runCtx, runCancel := context.WithTimeout(tabCtx, timeout)
	defer runCancel()

	// Honor caller cancellation alongside the page timeout
	go func() {
		select {
		case <-ctx.Done():
			runCancel()
		case <-runCtx.Done():
		}
	}()

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(pageURL),
		chromedp.Sleep(r.waitTime),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", pageURL, err)
	}

	return html, nil
}

// Shutdown stops the browser if it was started
func (r *Renderer) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return
	}

	if r.browserCancel != nil {
		r.browserCancel()
	}
	if r.allocatorCancel != nil {
		r.allocatorCancel()
	}

	r.browserCtx = nil
	r.browserCancel = nil
	r.allocatorCancel = nil
	r.initialized = false

	r.logger.Debug().Msg("Headless browser shut down")
}
