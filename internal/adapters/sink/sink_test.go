package sink_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"feedthread/internal/adapters/sink"
	"feedthread/internal/domain"
	"feedthread/pkg/log"
)

func sampleTweet(handle, id, text string) *domain.TweetData {
	return &domain.TweetData{
		UserName:   "Sample",
		UserHandle: handle,
		Text:       text,
		Timestamp:  "2026-05-01T10:00:00Z",
		URL:        "https://x.com/home",
		TweetURL:   "https://x.com/" + handle + "/status/" + id,
		Media:      domain.TweetMedia{Images: []string{"https://pbs.twimg.com/media/A?format=jpg&name=orig"}, Videos: []string{}},
		Stats:      domain.TweetStats{Replies: "1", Retweets: "2", Likes: "3"},
	}
}

func TestNew_UnknownKind(t *testing.T) {
	_, err := sink.New("parquet", "")

	if err == nil {
		t.Error("expected error for unknown sink kind")
	}
}

func TestNew_DefaultIsDiscard(t *testing.T) {
	s, err := sink.New("", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := s.SaveTweet(context.Background(), sampleTweet("a", "1", "x")); err != nil {
		t.Errorf("SaveTweet: %v", err)
	}
}

func TestJSONLines_AppendsRecords(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "out", "posts.jsonl")
	s, err := sink.NewJSONLines(path)
	if err != nil {
		t.Fatalf("NewJSONLines: %v", err)
	}
	ctx := log.WithCollectionID(context.Background(), "col-1")

	// Act
	if err := s.SaveTweet(ctx, sampleTweet("alice", "1", "hello <world>")); err != nil {
		t.Fatalf("SaveTweet: %v", err)
	}
	thread := domain.NewThread([]*domain.TweetData{sampleTweet("alice", "1", "a"), sampleTweet("alice", "2", "b")})
	if err := s.SaveThread(ctx, thread); err != nil {
		t.Fatalf("SaveThread: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Assert
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	var records []sink.Record
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r sink.Record
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		records = append(records, r)
	}
	if len(records) != 2 {
		t.Fatalf("records: got %d, want 2", len(records))
	}
	if records[0].Kind != "tweet" || records[0].Tweet.Text != "hello <world>" || records[0].CollectionID != "col-1" {
		t.Errorf("tweet record: got %+v", records[0])
	}
	if records[1].Kind != "thread" || len(records[1].Thread.Tweets) != 2 {
		t.Errorf("thread record: got %+v", records[1])
	}
}

func TestSQLite_SaveAndLookupTweet(t *testing.T) {
	// Arrange
	s, err := sink.NewSQLite(filepath.Join(t.TempDir(), "feed.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	// Act
	if err := s.SaveTweet(ctx, sampleTweet("Alice", "10", "first version")); err != nil {
		t.Fatalf("SaveTweet: %v", err)
	}
	if err := s.SaveTweet(ctx, sampleTweet("Alice", "10", "edited version")); err != nil {
		t.Fatalf("SaveTweet: %v", err)
	}
	got, err := s.LookupTweet(ctx, "alice", "10")

	// Assert
	if err != nil {
		t.Fatalf("LookupTweet: %v", err)
	}
	if got.Text != "edited version" {
		t.Errorf("Text: got %q, want edited version", got.Text)
	}
	if got.UserHandle != "Alice" {
		t.Errorf("UserHandle: got %q, want the saved casing Alice", got.UserHandle)
	}
	if len(got.Media.Images) != 1 || got.Stats.Likes != "3" {
		t.Errorf("media/stats not round-tripped: %+v", got)
	}
}

func TestSQLite_LookupMissing(t *testing.T) {
	s, err := sink.NewSQLite(filepath.Join(t.TempDir(), "feed.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	defer s.Close()

	_, err = s.LookupTweet(context.Background(), "nobody", "1")

	if !errors.Is(err, domain.ErrTweetNotFound) {
		t.Errorf("got %v, want ErrTweetNotFound", err)
	}
}

func TestSQLite_SaveThread(t *testing.T) {
	// Arrange
	s, err := sink.NewSQLite(filepath.Join(t.TempDir(), "feed.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	defer s.Close()
	ctx := context.Background()
	thread := domain.NewThread([]*domain.TweetData{
		sampleTweet("bob", "1", "one"),
		sampleTweet("bob", "2", "two"),
		sampleTweet("bob", "3", "three"),
	})

	// Act
	err = s.SaveThread(ctx, thread)

	// Assert
	if err != nil {
		t.Fatalf("SaveThread: %v", err)
	}
	ids, err := s.ThreadTweetIDs(ctx, "https://x.com/bob/status/1")
	if err != nil {
		t.Fatalf("ThreadTweetIDs: %v", err)
	}
	if len(ids) != 3 || ids[2] != "https://x.com/bob/status/3" {
		t.Errorf("ids: got %v", ids)
	}
	if _, err := s.LookupTweet(ctx, "bob", "2"); err != nil {
		t.Errorf("thread member not stored: %v", err)
	}
}

func TestSQLite_RejectsEmptyThread(t *testing.T) {
	s, err := sink.NewSQLite(filepath.Join(t.TempDir(), "feed.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	defer s.Close()

	if err := s.SaveThread(context.Background(), domain.NewThread(nil)); err == nil {
		t.Error("expected error for empty thread")
	}
}
