package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"golang.org/x/sync/semaphore"
)

// ErrBrowserClosed is returned by Acquire after Close.
var ErrBrowserClosed = errors.New("browser is closed")

// BrowserOptions configure NewBrowser.
type BrowserOptions struct {
	ExecPath    string
	Headless    bool
	MaxTabs     int
	SettleDelay time.Duration
	UserAgent   string
	Logger      *slog.Logger
}

// Browser is a shared headless Chrome process. Tabs are handed out by Acquire and
// bounded by MaxTabs. The owner must call Close.
type Browser struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	tabs   *semaphore.Weighted
	settle time.Duration
	logger *slog.Logger

	closeOnce sync.Once
	closed    chan struct{}
}

// NewBrowser launches Chrome and opens its first target.
func NewBrowser(opts BrowserOptions) (*Browser, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxTabs := opts.MaxTabs
	if maxTabs < 1 {
		maxTabs = 1
	}

	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts,
		chromedp.Flag("headless", opts.Headless),
		chromedp.DisableGPU,
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...any) {
			logger.Debug("chromedp error", "message", fmt.Sprintf(format, args...))
		}),
	)

	// Running with no actions starts the browser process.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	return &Browser{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		tabs:          semaphore.NewWeighted(int64(maxTabs)),
		settle:        opts.SettleDelay,
		logger:        logger,
		closed:        make(chan struct{}),
	}, nil
}

// Acquire opens a new tab. The tab context is also canceled when ctx ends.
// The release func closes the tab and must always be called.
func (b *Browser) Acquire(ctx context.Context) (context.Context, func(), error) {
	select {
	case <-b.closed:
		return nil, nil, ErrBrowserClosed
	default:
	}
	if err := b.tabs.Acquire(ctx, 1); err != nil {
		return nil, nil, err
	}

	tabCtx, cancel := chromedp.NewContext(b.browserCtx)
	stop := context.AfterFunc(ctx, cancel)

	var once sync.Once
	release := func() {
		once.Do(func() {
			stop()
			cancel()
			b.tabs.Release(1)
		})
	}
	return tabCtx, release, nil
}

// Render navigates a fresh tab to pageURL and returns the document HTML once the
// navigation's network has gone idle. SettleDelay, when set, is waited on top.
func (b *Browser) Render(ctx context.Context, pageURL string) (string, error) {
	tabCtx, release, err := b.Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	idle := newIdleTracker(tabCtx)
	start := time.Now()
	var html string
	actions := []chromedp.Action{
		page.SetLifecycleEventsEnabled(true),
		navigateUntilIdle(pageURL, idle),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if b.settle > 0 {
		actions = append(actions, chromedp.Sleep(b.settle))
	}
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	if err = chromedp.Run(tabCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("render %s: %w", pageURL, ctxErr)
		}
		return "", fmt.Errorf("render %s: %w", pageURL, err)
	}
	b.logger.DebugContext(ctx, "page rendered",
		"url", pageURL,
		"bytes", len(html),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return html, nil
}

func navigateUntilIdle(pageURL string, idle *idleTracker) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		_, loaderID, errText, err := page.Navigate(pageURL).Do(ctx)
		if err != nil {
			return err
		}
		if errText != "" {
			return fmt.Errorf("page load error %s", errText)
		}
		return idle.wait(ctx, loaderID)
	})
}

// idleTracker records which document loaders have reported the "networkIdle"
// lifecycle event.
type idleTracker struct {
	mu     sync.Mutex
	idle   map[cdp.LoaderID]bool
	notify chan struct{}
}

func newIdleTracker(tabCtx context.Context) *idleTracker {
	t := &idleTracker{
		idle:   make(map[cdp.LoaderID]bool),
		notify: make(chan struct{}, 1),
	}
	chromedp.ListenTarget(tabCtx, func(ev any) {
		if e, ok := ev.(*page.EventLifecycleEvent); ok {
			t.observe(e)
		}
	})
	return t
}

func (t *idleTracker) observe(e *page.EventLifecycleEvent) {
	if e.Name != "networkIdle" {
		return
	}
	t.mu.Lock()
	t.idle[e.LoaderID] = true
	t.mu.Unlock()
	select {
	case t.notify <- struct{}{}:
	default:
	}
}

// wait blocks until loaderID is idle or ctx ends. An empty loaderID (same-document
// navigation) accepts any idle loader.
func (t *idleTracker) wait(ctx context.Context, loaderID cdp.LoaderID) error {
	for {
		if t.isIdle(loaderID) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.notify:
		}
	}
}

func (t *idleTracker) isIdle(loaderID cdp.LoaderID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if loaderID == "" {
		return len(t.idle) > 0
	}
	return t.idle[loaderID]
}

// Close shuts down the browser process. It is safe to call more than once.
func (b *Browser) Close() {
	b.closeOnce.Do(func() {
		close(b.closed)
		b.browserCancel()
		b.allocCancel()
	})
}

var _ PageRenderer = (*Browser)(nil)
