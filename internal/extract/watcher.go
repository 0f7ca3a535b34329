package extract

import (
	"fmt"
	"sync"
	"time"

	"feedthread/internal/domain"
	"feedthread/pkg/log"

	"github.com/PuerkitoBio/goquery"
	"github.com/bep/debounce"
)

// MarkerAttr flags post roots that have already been collected.
const MarkerAttr = "data-feedthread-collected"

// DefaultDebounce is the quiet period before queued posts are drained.
const DefaultDebounce = 500 * time.Millisecond

// State is the Watcher's lifecycle position.
type State int

const (
	Idle State = iota
	Pending
	Draining
)

var stateNames = [...]string{"idle", "pending", "draining"}

func (s State) String() string {
	if s < Idle || s > Draining {
		return "unknown"
	}
	return stateNames[s]
}

// Handler receives the outcome of every drained post root. An error from
// OnPost leaves the post uncollected, so a later delivery retries it.
type Handler interface {
	OnPost(root *goquery.Selection, data *domain.TweetData) error
	OnError(root *goquery.Selection, err error)
}

// Watcher collects newly inserted posts. Batches of inserted subtrees are
// scanned for post roots, queued, and drained once the insertions go quiet.
// Roots already collected are skipped, so repeated delivery is harmless.
type Watcher struct {
	extractor *Extractor
	handler   Handler
	pageURL   func() string
	debounced func(func())

	mu      sync.Mutex
	state   State
	queue   []*goquery.Selection
	seen    map[string]struct{}
	drainMu sync.Mutex
}

// WatcherOption configures a Watcher.
type WatcherOption func(*watcherConfig)

type watcherConfig struct {
	delay   time.Duration
	pageURL func() string
}

// WithDebounce sets the quiet period before a drain.
func WithDebounce(d time.Duration) WatcherOption {
	return func(c *watcherConfig) {
		if d > 0 {
			c.delay = d
		}
	}
}

// WithPageURL sets the source of the page address stamped on each record.
func WithPageURL(fn func() string) WatcherOption {
	return func(c *watcherConfig) {
		if fn != nil {
			c.pageURL = fn
		}
	}
}

// NewWatcher creates an idle Watcher.
func NewWatcher(x *Extractor, h Handler, opts ...WatcherOption) *Watcher {
	cfg := watcherConfig{
		delay:   DefaultDebounce,
		pageURL: func() string { return "" },
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Watcher{
		extractor: x,
		handler:   h,
		pageURL:   cfg.pageURL,
		debounced: debounce.New(cfg.delay),
		seen:      make(map[string]struct{}),
	}
}

// State returns the current lifecycle state.
func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Notify delivers one batch of inserted subtrees. Any post root found in
// them (the subtree itself or a descendant) re-arms the debounce timer.
// It returns the number of roots queued.
func (w *Watcher) Notify(inserted ...*goquery.Selection) int {
	set := w.extractor.Selectors()

	var found []*goquery.Selection
	for _, sub := range inserted {
		if sub == nil {
			continue
		}
		sub.Each(func(_ int, el *goquery.Selection) {
			for _, post := range postsIn(el, set) {
				if !collected(post) {
					found = append(found, post)
				}
			}
		})
	}
	if len(found) == 0 {
		return 0
	}

	w.mu.Lock()
	w.queue = append(w.queue, found...)
	if w.state == Idle {
		w.state = Pending
	}
	w.mu.Unlock()

	w.debounced(w.drain)
	return len(found)
}

// Flush drains the queue immediately instead of waiting for the timer.
func (w *Watcher) Flush() {
	w.drain()
}

// drain extracts every queued root once and hands the result to the handler.
// A failing root is reported and the rest of the batch continues.
func (w *Watcher) drain() {
	w.drainMu.Lock()
	defer w.drainMu.Unlock()

	w.mu.Lock()
	batch := w.queue
	w.queue = nil
	if len(batch) == 0 {
		if w.state == Pending {
			w.state = Idle
		}
		w.mu.Unlock()
		return
	}
	w.state = Draining
	w.mu.Unlock()

	pageURL := w.pageURL()
	collectedCount := 0
	for _, root := range batch {
		if collected(root) {
			continue
		}
		if w.process(root, pageURL) {
			collectedCount++
		}
	}

	w.mu.Lock()
	if len(w.queue) > 0 {
		w.state = Pending
	} else {
		w.state = Idle
	}
	w.mu.Unlock()

	log.GlobalDebug("watcher drained", "queued", len(batch), "collected", collectedCount)
}

// process extracts one root and reports whether OnPost accepted it. Only
// accepted posts enter the seen-set.
func (w *Watcher) process(root *goquery.Selection, pageURL string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			w.handler.OnError(root, fmt.Errorf("extract post: panic: %v", r))
			ok = false
		}
	}()

	root.SetAttr(MarkerAttr, "true")

	data, err := w.extractor.Extract(root, pageURL)
	if err != nil {
		w.handler.OnError(root, fmt.Errorf("extract post: %w", err))
		return false
	}

	key := data.TweetURL
	if key != "" {
		w.mu.Lock()
		_, dup := w.seen[key]
		w.mu.Unlock()
		if dup {
			return false
		}
	}

	if err := w.handler.OnPost(root, data); err != nil {
		root.RemoveAttr(MarkerAttr)
		return false
	}

	if key != "" {
		w.mu.Lock()
		w.seen[key] = struct{}{}
		w.mu.Unlock()
	}
	return true
}

// collected reports whether root carries the collected marker.
func collected(root *goquery.Selection) bool {
	_, ok := root.Attr(MarkerAttr)
	return ok
}
