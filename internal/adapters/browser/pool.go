// Package browser drives a headless Chrome through chromedp: one browser
// process, one tab at a time.
package browser

import (
	"context"
	"sync"

	"feedthread/pkg/log"

	"github.com/chromedp/chromedp"
)

// BrowserPool manages a single Chrome process and enforces
// serialized tab usage (1 tab at a time).
type BrowserPool struct {
	allocCtx context.Context
	ctx      context.Context
	cancel   context.CancelFunc
	opts     []chromedp.ExecAllocatorOption
	remote   string

	mu     sync.Mutex
	tabSem chan struct{}

	// newTab returns a healthy tab context; replaced in tests.
	newTab func() (context.Context, context.CancelFunc, error)
}

// PoolOption configures a BrowserPool.
type PoolOption func(*BrowserPool)

// WithChromePath runs the Chrome binary at path instead of the one found on
// PATH.
func WithChromePath(path string) PoolOption {
	return func(bp *BrowserPool) {
		if path != "" {
			bp.opts = append(bp.opts, chromedp.ExecPath(path))
		}
	}
}

// WithRemoteURL connects to an already running Chrome at the DevTools
// websocket URL instead of starting a process.
func WithRemoteURL(wsURL string) PoolOption {
	return func(bp *BrowserPool) {
		bp.remote = wsURL
	}
}

// WithAllocatorOptions appends raw exec allocator options.
func WithAllocatorOptions(opts ...chromedp.ExecAllocatorOption) PoolOption {
	return func(bp *BrowserPool) {
		bp.opts = append(bp.opts, opts...)
	}
}

// NewBrowserPool creates a browser pool with exactly one Chrome instance
// and one tab allowed at a time.
func NewBrowserPool(options ...PoolOption) (*BrowserPool, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		// Core
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),

		// Memory / CPU reduction
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("disable-features", "Translate,BackForwardCache"),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("no-first-run", true),
	)

	bp := &BrowserPool{
		opts:   opts,
		tabSem: make(chan struct{}, 1), // HARD LIMIT: 1 tab
	}
	for _, opt := range options {
		opt(bp)
	}
	bp.newTab = bp.acquireTab

	if err := bp.start(); err != nil {
		return nil, err
	}

	return bp, nil
}

// start initializes or restarts the Chrome connection.
func (bp *BrowserPool) start() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.cancel != nil {
		bp.cancel()
	}

	var (
		allocCtx context.Context
		cancel   context.CancelFunc
	)
	if bp.remote != "" {
		allocCtx, cancel = chromedp.NewRemoteAllocator(context.Background(), bp.remote)
	} else {
		allocCtx, cancel = chromedp.NewExecAllocator(context.Background(), bp.opts...)
	}
	ctx, _ := chromedp.NewContext(allocCtx)

	// Force Chrome startup
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		return err
	}

	bp.allocCtx = allocCtx
	bp.ctx = ctx
	bp.cancel = cancel

	log.GlobalInfo("browser pool chrome started", "remote", bp.remote != "")
	return nil
}

// WithTab executes fn with exclusive access to a browser tab. Waiting for
// the tab respects ctx, and cancelling ctx closes the tab.
func (bp *BrowserPool) WithTab(ctx context.Context, fn func(tabCtx context.Context) error) error {
	select {
	case bp.tabSem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-bp.tabSem }()

	tabCtx, tabCancel, err := bp.newTab()
	if err != nil {
		return err
	}
	defer tabCancel()

	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	if err := fn(tabCtx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// acquireTab creates a new browser tab and performs a health check.
// If the browser is unhealthy, it restarts Chrome and creates a new tab.
func (bp *BrowserPool) acquireTab() (context.Context, context.CancelFunc, error) {
	bp.mu.Lock()
	tabCtx, tabCancel := chromedp.NewContext(bp.ctx)
	bp.mu.Unlock()

	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()

		log.GlobalWarn("browser pool tab failed, restarting chrome", "error", err)

		if restartErr := bp.start(); restartErr != nil {
			return nil, nil, restartErr
		}

		bp.mu.Lock()
		tabCtx, tabCancel = chromedp.NewContext(bp.ctx)
		bp.mu.Unlock()
	}

	return tabCtx, tabCancel, nil
}

// Close shuts down the browser completely.
func (bp *BrowserPool) Close() {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.cancel != nil {
		bp.cancel()
		bp.cancel = nil
		log.GlobalInfo("browser pool chrome stopped")
	}
}
