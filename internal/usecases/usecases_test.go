package usecases_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"feedthread/internal/domain"
	"feedthread/internal/extract"
	"feedthread/internal/usecases"
	"feedthread/pkg/log"
	"feedthread/test/fixtures"

	"github.com/PuerkitoBio/goquery"
)

// MockSink records every saved record.
type MockSink struct {
	mu            sync.Mutex
	tweets        []*domain.TweetData
	threads       []*domain.ThreadData
	collectionIDs []string
	err           error
	failures      int
}

func (m *MockSink) SaveTweet(ctx context.Context, tweet *domain.TweetData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.failures > 0 {
		m.failures--
		return errors.New("disk full")
	}
	m.tweets = append(m.tweets, tweet)
	m.collectionIDs = append(m.collectionIDs, log.CollectionIDFromContext(ctx))
	return nil
}

func (m *MockSink) SaveThread(ctx context.Context, thread *domain.ThreadData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.threads = append(m.threads, thread)
	m.collectionIDs = append(m.collectionIDs, log.CollectionIDFromContext(ctx))
	return nil
}

// MockCache is a mock implementation of TweetCache.
type MockCache struct {
	mu     sync.Mutex
	tweets map[string]*domain.TweetData
}

func NewMockCache() *MockCache {
	return &MockCache{tweets: make(map[string]*domain.TweetData)}
}

func (m *MockCache) Get(username, tweetID string) (*domain.TweetData, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tweet, found := m.tweets["/"+username+"/status/"+tweetID]
	return tweet, found
}

func (m *MockCache) Set(username, tweetID string, tweet *domain.TweetData) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tweets["/"+username+"/status/"+tweetID] = tweet
}

// MockRecorder counts outcomes per kind.
type MockRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func NewMockRecorder() *MockRecorder {
	return &MockRecorder{outcomes: make(map[string]int)}
}

func (m *MockRecorder) ObserveCollection(kind, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[kind+"/"+outcome]++
}

func (m *MockRecorder) count(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outcomes[key]
}

// MockLookup is a mock implementation of TweetLookup.
type MockLookup struct {
	tweet *domain.TweetData
	err   error
}

func (m *MockLookup) LookupTweet(context.Context, string, string) (*domain.TweetData, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.tweet, nil
}

// MockFetcher serves a fixed page.
type MockFetcher struct {
	html    string
	err     error
	fetched []string
}

func (m *MockFetcher) Fetch(_ context.Context, url string) (*goquery.Document, error) {
	m.fetched = append(m.fetched, url)
	if m.err != nil {
		return nil, m.err
	}
	return extract.LoadDocumentString(m.html)
}

// MockMarker records marked roots.
type MockMarker struct {
	mu     sync.Mutex
	marked int
}

func (m *MockMarker) Mark(*goquery.Selection) error {
	m.mu.Lock()
	m.marked++
	m.mu.Unlock()
	return nil
}

// CollectTweetUseCase tests

func TestCollectTweetUseCase_Execute_PicksRequestedStatus(t *testing.T) {
	// Arrange
	sink := &MockSink{}
	cache := NewMockCache()
	rec := NewMockRecorder()
	uc := usecases.NewCollectTweetUseCase(extract.NewExtractor(nil), sink, cache, rec)

	// Act
	tweet, err := uc.Execute(context.Background(), usecases.CollectRequest{
		HTML:     fixtures.GenerateThread("alice", "bob"),
		URL:      "https://x.com/bob/status/1001",
		StatusID: "1001",
	})

	// Assert
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tweet.UserHandle != "bob" {
		t.Errorf("UserHandle: got %v, want bob", tweet.UserHandle)
	}
	if len(sink.tweets) != 1 || sink.tweets[0] != tweet {
		t.Errorf("expected the tweet to reach the sink, got %d records", len(sink.tweets))
	}
	if _, found := cache.Get("bob", "1001"); !found {
		t.Error("expected tweet to be cached under /bob/status/1001")
	}
	if rec.count("tweet/ok") != 1 {
		t.Errorf("outcomes: got %v", rec.outcomes)
	}
}

func TestCollectTweetUseCase_Execute_StatusFromPageURL(t *testing.T) {
	// Arrange
	uc := usecases.NewCollectTweetUseCase(extract.NewExtractor(nil), nil, nil, nil)

	// Act
	tweet, err := uc.Execute(context.Background(), usecases.CollectRequest{
		HTML: fixtures.GenerateThread("alice", "bob", "carol"),
		URL:  "https://x.com/carol/status/1002?s=20",
	})

	// Assert
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tweet.UserHandle != "carol" {
		t.Errorf("UserHandle: got %v, want carol", tweet.UserHandle)
	}
}

func TestCollectTweetUseCase_Execute_Errors(t *testing.T) {
	sinkErr := errors.New("disk full")

	tests := []struct {
		name string
		html string
		sink *MockSink
		want error
	}{
		{"empty document", "", &MockSink{}, domain.ErrEmptyDocument},
		{"no posts", "<main><p>Nothing here</p></main>", &MockSink{}, domain.ErrNoPosts},
		{"sink failure", fixtures.GenerateBasicTweet(), &MockSink{err: sinkErr}, sinkErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			cache := NewMockCache()
			rec := NewMockRecorder()
			uc := usecases.NewCollectTweetUseCase(extract.NewExtractor(nil), tt.sink, cache, rec)

			// Act
			_, err := uc.Execute(context.Background(), usecases.CollectRequest{HTML: tt.html})

			// Assert
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if len(cache.tweets) != 0 {
				t.Error("failed collections must not be cached")
			}
			if rec.count("tweet/error") != 1 {
				t.Errorf("outcomes: got %v", rec.outcomes)
			}
		})
	}
}

func TestCollectTweetUseCase_Execute_CollectionID(t *testing.T) {
	// Arrange
	sink := &MockSink{}
	uc := usecases.NewCollectTweetUseCase(extract.NewExtractor(nil), sink, nil, nil)
	req := usecases.CollectRequest{HTML: fixtures.GenerateBasicTweet()}

	// Act
	_, _ = uc.Execute(context.Background(), req)
	_, _ = uc.Execute(context.Background(), req)
	_, _ = uc.Execute(log.WithCollectionID(context.Background(), "fixed-id"), req)

	// Assert
	if len(sink.collectionIDs) != 3 {
		t.Fatalf("expected 3 saves, got %d", len(sink.collectionIDs))
	}
	if sink.collectionIDs[0] == "" || sink.collectionIDs[0] == sink.collectionIDs[1] {
		t.Errorf("expected distinct generated IDs, got %q and %q", sink.collectionIDs[0], sink.collectionIDs[1])
	}
	if sink.collectionIDs[2] != "fixed-id" {
		t.Errorf("expected caller ID to be kept, got %q", sink.collectionIDs[2])
	}
}

// CollectThreadUseCase tests

func TestCollectThreadUseCase_Execute_Success(t *testing.T) {
	// Arrange
	sink := &MockSink{}
	cache := NewMockCache()
	rec := NewMockRecorder()
	uc := usecases.NewCollectThreadUseCase(extract.NewExtractor(nil), sink, cache, rec)

	// Act
	thread, err := uc.Execute(context.Background(), usecases.CollectRequest{
		HTML: fixtures.GenerateThread("alice", "alice", "bob"),
		URL:  "https://x.com/alice/status/1000",
	})

	// Assert
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(thread.Tweets) != 2 {
		t.Errorf("expected 2 tweets, got %d", len(thread.Tweets))
	}
	if len(sink.threads) != 1 {
		t.Errorf("expected 1 saved thread, got %d", len(sink.threads))
	}
	for _, id := range []string{"1000", "1001"} {
		if _, found := cache.Get("alice", id); !found {
			t.Errorf("expected /alice/status/%s to be cached", id)
		}
	}
	if rec.count("thread/ok") != 1 {
		t.Errorf("outcomes: got %v", rec.outcomes)
	}
}

func TestCollectThreadUseCase_Execute_NoConversation(t *testing.T) {
	// Arrange
	sink := &MockSink{}
	rec := NewMockRecorder()
	uc := usecases.NewCollectThreadUseCase(extract.NewExtractor(nil), sink, nil, rec)

	// Act
	_, err := uc.Execute(context.Background(), usecases.CollectRequest{HTML: fixtures.GenerateLooseTweet()})

	// Assert
	if !errors.Is(err, domain.ErrNoConversation) {
		t.Errorf("expected ErrNoConversation, got %v", err)
	}
	if len(sink.threads) != 0 {
		t.Error("expected nothing saved")
	}
	if rec.count("thread/error") != 1 {
		t.Errorf("outcomes: got %v", rec.outcomes)
	}
}

// GetTweetUseCase tests

func TestGetTweetUseCase_Execute_CacheHit(t *testing.T) {
	// Arrange
	cached := &domain.TweetData{UserHandle: "testuser", Text: "Cached tweet"}
	cache := NewMockCache()
	cache.Set("testuser", "123", cached)
	fetcher := &MockFetcher{html: fixtures.GenerateBasicTweet()}
	collector := usecases.NewCollectTweetUseCase(extract.NewExtractor(nil), nil, cache, nil)
	uc := usecases.NewGetTweetUseCase(cache, &MockLookup{err: domain.ErrTweetNotFound}, fetcher, collector)

	// Act
	tweet, err := uc.Execute(context.Background(), "123", "testuser")

	// Assert
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if tweet.Text != "Cached tweet" {
		t.Errorf("expected cached tweet, got %v", tweet.Text)
	}
	if len(fetcher.fetched) != 0 {
		t.Error("cache hit must not fetch")
	}
}

func TestGetTweetUseCase_Execute_StoreHit_StoresInCache(t *testing.T) {
	// Arrange
	stored := &domain.TweetData{UserHandle: "user", Text: "Stored tweet"}
	cache := NewMockCache()
	uc := usecases.NewGetTweetUseCase(cache, &MockLookup{tweet: stored}, nil, nil)

	// Act
	tweet, err := uc.Execute(context.Background(), "789", "user")

	// Assert
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if tweet != stored {
		t.Errorf("expected stored tweet, got %+v", tweet)
	}
	if cachedTweet, found := cache.Get("user", "789"); !found || cachedTweet != stored {
		t.Error("expected stored tweet to be cached")
	}
}

func TestGetTweetUseCase_Execute_Miss_CollectsThroughFetcher(t *testing.T) {
	// Arrange
	cache := NewMockCache()
	sink := &MockSink{}
	fetcher := &MockFetcher{html: fixtures.GenerateBasicTweet()}
	collector := usecases.NewCollectTweetUseCase(extract.NewExtractor(nil), sink, cache, nil)
	uc := usecases.NewGetTweetUseCase(cache, &MockLookup{err: domain.ErrTweetNotFound}, fetcher, collector)

	// Act
	tweet, err := uc.Execute(context.Background(), "123", "johndoe")

	// Assert
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tweet.Text != "This is a test tweet content." {
		t.Errorf("Text: got %q", tweet.Text)
	}
	if len(fetcher.fetched) != 1 || fetcher.fetched[0] != "https://x.com/johndoe/status/123" {
		t.Errorf("fetched: got %v", fetcher.fetched)
	}
	if _, found := cache.Get("johndoe", "123"); !found {
		t.Error("expected collected tweet to be cached")
	}
	if len(sink.tweets) != 1 {
		t.Errorf("expected collected tweet to reach the sink, got %d", len(sink.tweets))
	}
}

func TestGetTweetUseCase_Execute_Errors(t *testing.T) {
	storeErr := errors.New("database locked")
	fetchErr := errors.New("navigation timeout")

	tests := []struct {
		name    string
		lookup  usecases.TweetLookup
		fetcher usecases.PageFetcher
		want    error
	}{
		{"nothing configured", nil, nil, domain.ErrTweetNotFound},
		{"store miss without fetcher", &MockLookup{err: domain.ErrTweetNotFound}, nil, domain.ErrTweetNotFound},
		{"store failure", &MockLookup{err: storeErr}, nil, storeErr},
		{"fetch failure", nil, &MockFetcher{err: fetchErr}, fetchErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			collector := usecases.NewCollectTweetUseCase(extract.NewExtractor(nil), nil, nil, nil)
			uc := usecases.NewGetTweetUseCase(NewMockCache(), tt.lookup, tt.fetcher, collector)

			// Act
			_, err := uc.Execute(context.Background(), "999", "user")

			// Assert
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

// FeedHandler tests

func TestFeedHandler_SavesAndMarksWatcherPosts(t *testing.T) {
	// Arrange
	sink := &MockSink{}
	marker := &MockMarker{}
	rec := NewMockRecorder()
	h := usecases.NewFeedHandler(context.Background(), sink, marker, nil, rec)
	w := extract.NewWatcher(extract.NewExtractor(nil), h, extract.WithDebounce(time.Hour))
	doc, err := extract.LoadDocumentString(fixtures.GenerateThread("alice", "bob", "carol"))
	if err != nil {
		t.Fatalf("LoadDocumentString: %v", err)
	}

	// Act
	w.Notify(doc.Selection)
	w.Flush()

	// Assert
	saved, failed := h.Stats()
	if saved != 3 || failed != 0 {
		t.Errorf("Stats: got (%d, %d), want (3, 0)", saved, failed)
	}
	if marker.marked != 3 {
		t.Errorf("marked: got %d, want 3", marker.marked)
	}
	if rec.count("feed/ok") != 3 {
		t.Errorf("outcomes: got %v", rec.outcomes)
	}
	if sink.collectionIDs[0] == sink.collectionIDs[1] {
		t.Error("each feed post is its own collection")
	}
}

func TestFeedHandler_SinkFailureDoesNotMark(t *testing.T) {
	// Arrange
	marker := &MockMarker{}
	h := usecases.NewFeedHandler(context.Background(), &MockSink{err: errors.New("closed")}, marker, nil, nil)
	doc, err := extract.LoadDocumentString(fixtures.GenerateBasicTweet())
	if err != nil {
		t.Fatalf("LoadDocumentString: %v", err)
	}
	root := doc.Find(`article[data-testid="tweet"]`)

	// Act
	err = h.OnPost(root, &domain.TweetData{UserHandle: "johndoe"})
	h.OnError(root, domain.ErrDetachedElement)

	// Assert
	if err == nil {
		t.Error("expected the save failure to be returned")
	}
	saved, failed := h.Stats()
	if saved != 0 || failed != 2 {
		t.Errorf("Stats: got (%d, %d), want (0, 2)", saved, failed)
	}
	if marker.marked != 0 {
		t.Error("unsaved posts must not be marked")
	}
}

func TestFeedHandler_FailedSaveIsRetriedOnNextSnapshot(t *testing.T) {
	// Arrange
	sink := &MockSink{failures: 1}
	marker := &MockMarker{}
	h := usecases.NewFeedHandler(context.Background(), sink, marker, nil, nil)
	w := extract.NewWatcher(extract.NewExtractor(nil), h, extract.WithDebounce(time.Hour))
	html := fixtures.GenerateBasicTweet()

	// Act
	for i := 0; i < 2; i++ {
		doc, err := extract.LoadDocumentString(html)
		if err != nil {
			t.Fatalf("LoadDocumentString: %v", err)
		}
		w.Notify(doc.Selection)
		w.Flush()
	}

	// Assert
	saved, failed := h.Stats()
	if saved != 1 || failed != 1 {
		t.Errorf("Stats: got (%d, %d), want (1, 1)", saved, failed)
	}
	if len(sink.tweets) != 1 {
		t.Errorf("saved tweets: got %d, want 1", len(sink.tweets))
	}
	if marker.marked != 1 {
		t.Errorf("marked: got %d, want 1", marker.marked)
	}
}
