package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"feedthread/internal/domain"
	"feedthread/internal/extract"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLite stores tweets and threads in a local database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path and applies the schema.
func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite sink: empty path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("sqlite sink: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite sink: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite sink: migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tweets (
		id TEXT PRIMARY KEY,
		status_id TEXT,
		user_handle TEXT,
		user_name TEXT,
		avatar TEXT,
		text TEXT,
		tweet_time TEXT,
		page_url TEXT,
		tweet_url TEXT,
		media TEXT,
		stats TEXT,
		collected_at TEXT,
		collection_id TEXT,
		saved_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS threads (
		id TEXT PRIMARY KEY,
		author_handle TEXT,
		tweet_count INTEGER NOT NULL,
		tweet_ids TEXT NOT NULL,
		collection_id TEXT,
		saved_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tweets_status_handle ON tweets(status_id, lower(user_handle));
	CREATE INDEX IF NOT EXISTS idx_tweets_saved_at ON tweets(saved_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// tweetKey is the permalink when known, otherwise a fresh ID.
func tweetKey(t *domain.TweetData) string {
	if t.TweetURL != "" {
		return t.TweetURL
	}
	return "urn:uuid:" + uuid.NewString()
}

func (s *SQLite) SaveTweet(ctx context.Context, tweet *domain.TweetData) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite sink: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.upsertTweet(ctx, tx, tweet); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLite) SaveThread(ctx context.Context, thread *domain.ThreadData) error {
	if thread == nil || len(thread.Tweets) == 0 {
		return fmt.Errorf("sqlite sink: empty thread")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite sink: %w", err)
	}
	defer tx.Rollback()

	ids := make([]string, 0, len(thread.Tweets))
	for _, t := range thread.Tweets {
		id, err := s.upsertTweet(ctx, tx, t)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	idsJSON, _ := json.Marshal(ids)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO threads (id, author_handle, tweet_count, tweet_ids, collection_id, saved_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			tweet_count = excluded.tweet_count,
			tweet_ids = excluded.tweet_ids,
			collection_id = excluded.collection_id,
			saved_at = excluded.saved_at
	`, ids[0], thread.Tweets[0].UserHandle, len(ids), string(idsJSON), collectionID(ctx), savedAt())
	if err != nil {
		return fmt.Errorf("sqlite sink: save thread: %w", err)
	}
	return tx.Commit()
}

func (s *SQLite) upsertTweet(ctx context.Context, tx *sql.Tx, t *domain.TweetData) (string, error) {
	id := tweetKey(t)
	_, statusID := extract.StatusFromURL(t.TweetURL)
	mediaJSON, _ := json.Marshal(t.Media)
	statsJSON, _ := json.Marshal(t.Stats)

	_, err := tx.ExecContext(ctx, `
		INSERT INTO tweets (id, status_id, user_handle, user_name, avatar, text, tweet_time,
			page_url, tweet_url, media, stats, collected_at, collection_id, saved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_handle = excluded.user_handle,
			user_name = excluded.user_name,
			text = excluded.text,
			media = excluded.media,
			stats = excluded.stats,
			collected_at = excluded.collected_at,
			collection_id = excluded.collection_id,
			saved_at = excluded.saved_at
	`, id, statusID, t.UserHandle, t.UserName, t.Avatar, t.Text, t.TweetTime,
		t.URL, t.TweetURL, string(mediaJSON), string(statsJSON), t.Timestamp, collectionID(ctx), savedAt())
	if err != nil {
		return "", fmt.Errorf("sqlite sink: save tweet: %w", err)
	}
	return id, nil
}

// LookupTweet returns the most recently saved tweet for a handle and
// status ID, or domain.ErrTweetNotFound. The handle matches case-insensitively
// and is returned as it was saved.
func (s *SQLite) LookupTweet(ctx context.Context, username, statusID string) (*domain.TweetData, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_handle, user_name, avatar, text, tweet_time, page_url, tweet_url,
			media, stats, collected_at
		FROM tweets
		WHERE status_id = ? AND lower(user_handle) = ?
		ORDER BY saved_at DESC
		LIMIT 1
	`, statusID, strings.ToLower(username))

	var (
		t                    domain.TweetData
		mediaJSON, statsJSON string
	)
	err := row.Scan(&t.UserHandle, &t.UserName, &t.Avatar, &t.Text, &t.TweetTime, &t.URL, &t.TweetURL,
		&mediaJSON, &statsJSON, &t.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTweetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite sink: lookup: %w", err)
	}
	if err := json.Unmarshal([]byte(mediaJSON), &t.Media); err != nil {
		return nil, fmt.Errorf("sqlite sink: decode media: %w", err)
	}
	if err := json.Unmarshal([]byte(statsJSON), &t.Stats); err != nil {
		return nil, fmt.Errorf("sqlite sink: decode stats: %w", err)
	}
	return &t, nil
}

// ThreadTweetIDs returns the stored tweet IDs of the thread rooted at mainID.
func (s *SQLite) ThreadTweetIDs(ctx context.Context, mainID string) ([]string, error) {
	var idsJSON string
	err := s.db.QueryRowContext(ctx, `SELECT tweet_ids FROM threads WHERE id = ?`, mainID).Scan(&idsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTweetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite sink: thread: %w", err)
	}
	var ids []string
	if err := json.Unmarshal([]byte(idsJSON), &ids); err != nil {
		return nil, fmt.Errorf("sqlite sink: decode thread: %w", err)
	}
	return ids, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
