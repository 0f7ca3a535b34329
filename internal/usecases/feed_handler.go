package usecases

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"feedthread/internal/domain"
	"feedthread/pkg/log"

	"github.com/PuerkitoBio/goquery"
)

// FeedHandler receives the Change Watcher's records, saves them and marks
// the live elements as collected. A failing post never stops the feed.
type FeedHandler struct {
	ctx     context.Context
	sink    Sink
	marker  Marker
	cache   TweetCache
	metrics Recorder

	saved  atomic.Int64
	failed atomic.Int64
}

// NewFeedHandler creates a FeedHandler whose saves run under ctx.
func NewFeedHandler(ctx context.Context, sink Sink, marker Marker, cache TweetCache, metrics Recorder) *FeedHandler {
	if sink == nil {
		sink = nopSink{}
	}
	if marker == nil {
		marker = nopMarker{}
	}
	if cache == nil {
		cache = nopCache{}
	}
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &FeedHandler{ctx: ctx, sink: sink, marker: marker, cache: cache, metrics: metrics}
}

// OnPost saves one record and marks its element. A failed save is returned
// so the watcher retries the post on a later snapshot.
func (h *FeedHandler) OnPost(root *goquery.Selection, data *domain.TweetData) error {
	start := time.Now()
	ctx := withCollection(h.ctx)

	if err := h.sink.SaveTweet(ctx, data); err != nil {
		h.failed.Add(1)
		h.metrics.ObserveCollection(KindFeed, OutcomeError, time.Since(start))
		log.GlobalErrorCtx(ctx, "save feed post failed", "tweet_url", data.TweetURL, "error", err)
		return fmt.Errorf("save tweet: %w", err)
	}
	cacheTweet(h.cache, data)

	if err := h.marker.Mark(root); err != nil {
		log.GlobalWarnCtx(ctx, "mark post failed", "tweet_url", data.TweetURL, "error", err)
	}

	h.saved.Add(1)
	h.metrics.ObserveCollection(KindFeed, OutcomeOK, time.Since(start))
	log.GlobalInfoCtx(ctx, "feed post collected", "handle", data.UserHandle, "tweet_url", data.TweetURL)
	return nil
}

// OnError records an element that could not be extracted.
func (h *FeedHandler) OnError(_ *goquery.Selection, err error) {
	h.failed.Add(1)
	h.metrics.ObserveCollection(KindFeed, OutcomeError, 0)
	log.GlobalWarnCtx(h.ctx, "feed post skipped", "error", err)
}

// Stats returns the number of saved and failed posts so far.
func (h *FeedHandler) Stats() (saved, failed int64) {
	return h.saved.Load(), h.failed.Load()
}
