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

// CollectThreadUseCase assembles the thread around a main post.
type CollectThreadUseCase struct {
	extractor *extract.Extractor
	sink      Sink
	cache     TweetCache
	metrics   Recorder
}

// NewCollectThreadUseCase creates a new CollectThreadUseCase.
func NewCollectThreadUseCase(x *extract.Extractor, sink Sink, cache TweetCache, metrics Recorder) *CollectThreadUseCase {
	if sink == nil {
		sink = nopSink{}
	}
	if cache == nil {
		cache = nopCache{}
	}
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &CollectThreadUseCase{extractor: x, sink: sink, cache: cache, metrics: metrics}
}

// Execute parses req.HTML and collects the thread.
func (uc *CollectThreadUseCase) Execute(ctx context.Context, req CollectRequest) (*domain.ThreadData, error) {
	doc, err := extract.LoadDocumentString(req.HTML)
	if err != nil {
		uc.metrics.ObserveCollection(KindThread, OutcomeError, 0)
		return nil, err
	}
	return uc.ExecuteDocument(ctx, doc.Selection, req)
}

// ExecuteDocument assembles the thread starting at the post carrying req's
// status ID, or at the first post of the snapshot.
func (uc *CollectThreadUseCase) ExecuteDocument(ctx context.Context, root *goquery.Selection, req CollectRequest) (thread *domain.ThreadData, err error) {
	start := time.Now()
	ctx = withCollection(ctx)
	defer func() {
		uc.metrics.ObserveCollection(KindThread, outcome(err), time.Since(start))
	}()

	main, err := uc.extractor.FindPost(root, req.statusID())
	if err != nil {
		return nil, err
	}

	thread, err = uc.extractor.AssembleThread(main, req.URL)
	if err != nil {
		log.GlobalWarnCtx(ctx, "thread assembly failed", "url", req.URL, "error", err)
		return nil, err
	}

	if err := uc.sink.SaveThread(ctx, thread); err != nil {
		log.GlobalErrorCtx(ctx, "save thread failed", "tweet_url", thread.MainTweet.TweetURL, "error", err)
		return nil, fmt.Errorf("save thread: %w", err)
	}
	for _, tweet := range thread.Tweets {
		cacheTweet(uc.cache, tweet)
	}

	log.GlobalInfoCtx(ctx, "thread collected",
		"handle", thread.MainTweet.UserHandle,
		"tweet_url", thread.MainTweet.TweetURL,
		"posts", len(thread.Tweets),
	)
	return thread, nil
}
