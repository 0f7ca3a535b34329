// Package sink hands collected records to their downstream consumers.
package sink

import (
	"context"
	"fmt"
	"time"

	"feedthread/internal/domain"
	"feedthread/pkg/log"
)

// Kind names accepted by New.
const (
	KindDiscard = "discard"
	KindJSONL   = "jsonl"
	KindSQLite  = "sqlite"
)

// Sink receives collected tweets and threads.
type Sink interface {
	SaveTweet(ctx context.Context, tweet *domain.TweetData) error
	SaveThread(ctx context.Context, thread *domain.ThreadData) error
	Close() error
}

// New opens the sink named by kind at path.
func New(kind, path string) (Sink, error) {
	switch kind {
	case "", KindDiscard:
		return Discard{}, nil
	case KindJSONL:
		return NewJSONLines(path)
	case KindSQLite:
		return NewSQLite(path)
	default:
		return nil, fmt.Errorf("unknown sink %q", kind)
	}
}

// Discard drops every record.
type Discard struct{}

func (Discard) SaveTweet(context.Context, *domain.TweetData) error   { return nil }
func (Discard) SaveThread(context.Context, *domain.ThreadData) error { return nil }
func (Discard) Close() error                                         { return nil }

// savedAt is the time stamped on stored records.
var savedAt = func() time.Time { return time.Now().UTC() }

// collectionID returns the collection action ID carried by ctx.
func collectionID(ctx context.Context) string {
	return log.CollectionIDFromContext(ctx)
}
