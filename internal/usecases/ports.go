// Package usecases wires the extraction core to caches, sinks and metrics.
package usecases

import (
	"context"
	"time"

	"feedthread/internal/domain"
	"feedthread/pkg/log"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
)

// Collection kinds and outcomes reported to the Recorder.
const (
	KindTweet  = "tweet"
	KindThread = "thread"
	KindFeed   = "feed"

	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// TweetCache defines the interface for caching collected tweets.
type TweetCache interface {
	Get(username, tweetID string) (*domain.TweetData, bool)
	Set(username, tweetID string, tweet *domain.TweetData)
}

// Sink receives every collected record.
type Sink interface {
	SaveTweet(ctx context.Context, tweet *domain.TweetData) error
	SaveThread(ctx context.Context, thread *domain.ThreadData) error
}

// TweetLookup finds a previously saved record.
type TweetLookup interface {
	LookupTweet(ctx context.Context, username, statusID string) (*domain.TweetData, error)
}

// PageFetcher loads a rendered page as a document snapshot.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

// Marker flags a live post element as collected.
type Marker interface {
	Mark(root *goquery.Selection) error
}

// Recorder counts collection outcomes.
type Recorder interface {
	ObserveCollection(kind, outcome string, elapsed time.Duration)
}

// CollectRequest is one collection action over a page snapshot.
type CollectRequest struct {
	HTML     string `json:"html"`
	URL      string `json:"url"`
	StatusID string `json:"statusId,omitempty"`
}

type nopSink struct{}

func (nopSink) SaveTweet(context.Context, *domain.TweetData) error   { return nil }
func (nopSink) SaveThread(context.Context, *domain.ThreadData) error { return nil }

type nopCache struct{}

func (nopCache) Get(string, string) (*domain.TweetData, bool) { return nil, false }
func (nopCache) Set(string, string, *domain.TweetData)        {}

type nopRecorder struct{}

func (nopRecorder) ObserveCollection(string, string, time.Duration) {}

type nopMarker struct{}

func (nopMarker) Mark(*goquery.Selection) error { return nil }

// withCollection tags ctx with a fresh collection ID unless it already
// carries one.
func withCollection(ctx context.Context) context.Context {
	if log.CollectionIDFromContext(ctx) != "" {
		return ctx
	}
	return log.WithCollectionID(ctx, uuid.NewString())
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}
