package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"feedthread/internal/domain"
)

// Record is one line of a JSON Lines sink file.
type Record struct {
	Kind         string             `json:"kind"`
	CollectionID string             `json:"collectionId,omitempty"`
	SavedAt      string             `json:"savedAt"`
	Tweet        *domain.TweetData  `json:"tweet,omitempty"`
	Thread       *domain.ThreadData `json:"thread,omitempty"`
}

// JSONLines appends one JSON object per record to a file.
type JSONLines struct {
	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
}

// NewJSONLines opens path for appending, creating parent directories.
func NewJSONLines(path string) (*JSONLines, error) {
	if path == "" {
		return nil, fmt.Errorf("jsonl sink: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("jsonl sink: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("jsonl sink: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	return &JSONLines{f: f, enc: enc}, nil
}

func (s *JSONLines) SaveTweet(ctx context.Context, tweet *domain.TweetData) error {
	return s.write(Record{Kind: "tweet", CollectionID: collectionID(ctx), Tweet: tweet})
}

func (s *JSONLines) SaveThread(ctx context.Context, thread *domain.ThreadData) error {
	return s.write(Record{Kind: "thread", CollectionID: collectionID(ctx), Thread: thread})
}

func (s *JSONLines) write(r Record) error {
	r.SavedAt = savedAt().Format(time.RFC3339)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(r); err != nil {
		return fmt.Errorf("jsonl sink: %w", err)
	}
	return nil
}

// Close flushes and closes the file.
func (s *JSONLines) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.f.Sync(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}
