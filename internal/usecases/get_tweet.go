package usecases

import (
	"context"
	"errors"
	"fmt"

	"feedthread/internal/domain"
	"feedthread/pkg/log"
)

// GetTweetUseCase returns collected tweets: cache first, then the sink's
// store, then a fresh collection through the page fetcher.
type GetTweetUseCase struct {
	cache     TweetCache
	lookup    TweetLookup
	fetcher   PageFetcher
	collector *CollectTweetUseCase
}

// NewGetTweetUseCase creates a new GetTweetUseCase. lookup, fetcher and
// collector may be nil; the corresponding step is then skipped.
func NewGetTweetUseCase(cache TweetCache, lookup TweetLookup, fetcher PageFetcher, collector *CollectTweetUseCase) *GetTweetUseCase {
	if cache == nil {
		cache = nopCache{}
	}
	return &GetTweetUseCase{
		cache:     cache,
		lookup:    lookup,
		fetcher:   fetcher,
		collector: collector,
	}
}

// Execute retrieves a tweet by author and status ID.
func (uc *GetTweetUseCase) Execute(ctx context.Context, tweetID, username string) (*domain.TweetData, error) {
	// Cache key is normalized: /{username}/status/{id}
	if tweet, found := uc.cache.Get(username, tweetID); found {
		log.GlobalDebugCtx(ctx, "cache hit", "username", username, "tweet_id", tweetID)
		return tweet, nil
	}

	if uc.lookup != nil {
		tweet, err := uc.lookup.LookupTweet(ctx, username, tweetID)
		switch {
		case err == nil:
			log.GlobalDebugCtx(ctx, "store hit", "username", username, "tweet_id", tweetID)
			uc.cache.Set(username, tweetID, tweet)
			return tweet, nil
		case !errors.Is(err, domain.ErrTweetNotFound):
			return nil, fmt.Errorf("lookup tweet: %w", err)
		}
	}

	if uc.fetcher == nil || uc.collector == nil {
		return nil, domain.ErrTweetNotFound
	}

	log.GlobalDebugCtx(ctx, "cache miss, collecting", "username", username, "tweet_id", tweetID)

	pageURL := "https://x.com/" + username + "/status/" + tweetID
	doc, err := uc.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}

	return uc.collector.ExecuteDocument(ctx, doc.Selection, CollectRequest{URL: pageURL, StatusID: tweetID})
}
