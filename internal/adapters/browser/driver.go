package browser

import (
	"context"
	"sync"
	"time"

	"feedthread/internal/extract"
	"feedthread/pkg/log"
)

// DefaultInterval is the pause between feed snapshots.
const DefaultInterval = 2 * time.Second

// DefaultDrainGrace is how long a tab stays usable after shutdown begins.
const DefaultDrainGrace = 10 * time.Second

// Linger returns a context that ends grace after ctx ends, or when the
// returned cancel is called. Open the feed tab under it so the final drain
// can still read, expand and mark the live page.
func Linger(ctx context.Context, grace time.Duration) (context.Context, context.CancelFunc) {
	lctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	var timer *time.Timer
	var mu sync.Mutex
	stop := context.AfterFunc(ctx, func() {
		mu.Lock()
		timer = time.AfterFunc(grace, cancel)
		mu.Unlock()
	})
	return lctx, func() {
		stop()
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		cancel()
	}
}

// FeedDriver feeds a live timeline into a Watcher. Each tick it snapshots
// the page, hands the document to the watcher, and scrolls for more.
type FeedDriver struct {
	page     *Page
	watcher  *extract.Watcher
	interval time.Duration
	scroll   bool
}

// NewFeedDriver creates a driver polling page every interval.
func NewFeedDriver(page *Page, watcher *extract.Watcher, interval time.Duration, scroll bool) *FeedDriver {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &FeedDriver{page: page, watcher: watcher, interval: interval, scroll: scroll}
}

// Run polls until ctx ends, then drains what is still queued. The page's
// tab must outlive ctx for that drain to reach the live page; see Linger.
func (d *FeedDriver) Run(ctx context.Context) error {
	logger := log.Default().Named("driver")
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		d.poll(logger)

		select {
		case <-ctx.Done():
			d.watcher.Flush()
			logger.Info("feed driver stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (d *FeedDriver) poll(logger *log.Logger) {
	doc, err := d.page.Snapshot()
	if err != nil {
		logger.Warn("snapshot failed", "error", err)
		return
	}

	queued := d.watcher.Notify(doc.Selection)
	logger.Debug("snapshot scanned", "queued", queued, "state", d.watcher.State().String())

	if d.scroll {
		if err := d.page.Scroll(); err != nil {
			logger.Warn("scroll failed", "error", err)
		}
	}
}
