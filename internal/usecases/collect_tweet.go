package usecases

import (
	"context"
	"fmt"
	"time"

	"feedthread/internal/domain"
	"feedthread/internal/extract"
	"feedthread/pkg/log"

	"github.com/PuerkitoBio/goquery"
)

// CollectTweetUseCase extracts a single post from a page snapshot.
type CollectTweetUseCase struct {
	extractor *extract.Extractor
	sink      Sink
	cache     TweetCache
	metrics   Recorder
}

// NewCollectTweetUseCase creates a new CollectTweetUseCase. Nil
// collaborators are replaced by no-ops.
func NewCollectTweetUseCase(x *extract.Extractor, sink Sink, cache TweetCache, metrics Recorder) *CollectTweetUseCase {
	if sink == nil {
		sink = nopSink{}
	}
	if cache == nil {
		cache = nopCache{}
	}
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &CollectTweetUseCase{extractor: x, sink: sink, cache: cache, metrics: metrics}
}

// Execute parses req.HTML and collects the requested post.
func (uc *CollectTweetUseCase) Execute(ctx context.Context, req CollectRequest) (*domain.TweetData, error) {
	doc, err := extract.LoadDocumentString(req.HTML)
	if err != nil {
		uc.metrics.ObserveCollection(KindTweet, OutcomeError, 0)
		return nil, err
	}
	return uc.ExecuteDocument(ctx, doc.Selection, req)
}

// ExecuteDocument collects the post carrying req's status ID, or the first
// post of the snapshot, and hands it to the sink.
func (uc *CollectTweetUseCase) ExecuteDocument(ctx context.Context, root *goquery.Selection, req CollectRequest) (tweet *domain.TweetData, err error) {
	start := time.Now()
	ctx = withCollection(ctx)
	defer func() {
		uc.metrics.ObserveCollection(KindTweet, outcome(err), time.Since(start))
	}()

	post, err := uc.extractor.FindPost(root, req.statusID())
	if err != nil {
		return nil, err
	}

	tweet, err = uc.extractor.Extract(post, req.URL)
	if err != nil {
		return nil, err
	}

	if err := uc.sink.SaveTweet(ctx, tweet); err != nil {
		log.GlobalErrorCtx(ctx, "save tweet failed", "tweet_url", tweet.TweetURL, "error", err)
		return nil, fmt.Errorf("save tweet: %w", err)
	}
	cacheTweet(uc.cache, tweet)

	log.GlobalInfoCtx(ctx, "tweet collected",
		"handle", tweet.UserHandle,
		"tweet_url", tweet.TweetURL,
		"images", len(tweet.Media.Images),
		"videos", len(tweet.Media.Videos),
	)
	return tweet, nil
}

// statusID returns the explicit status ID, else the one in the page URL.
func (r CollectRequest) statusID() string {
	if r.StatusID != "" {
		return r.StatusID
	}
	_, id := extract.StatusFromURL(r.URL)
	return id
}

// cacheTweet stores tweet under its permalink's handle and status ID.
// Records without a permalink are not cached.
func cacheTweet(cache TweetCache, tweet *domain.TweetData) {
	handle, id := extract.StatusFromURL(tweet.TweetURL)
	if handle == "" || id == "" {
		return
	}
	cache.Set(handle, id, tweet)
}
