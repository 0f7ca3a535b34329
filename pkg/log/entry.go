package log

import (
	"encoding/json"
	"time"
)

// Entry represents a structured log entry.
type Entry struct {
	Timestamp    time.Time
	Level        Level
	Caller       string
	Component    string
	RequestID    string
	CollectionID string
	Message      string
	Fields       map[string]any
}

// NewEntry creates a new log entry with the current timestamp.
func NewEntry(level Level, msg string) *Entry {
	return &Entry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   msg,
		Fields:    make(map[string]any),
	}
}

// With adds key-value pairs to the entry's fields.
// If an odd number of arguments is provided, the last key is ignored.
func (e *Entry) With(keysAndValues ...any) *Entry {
	mergeFields(e.Fields, keysAndValues)
	return e
}

// mergeFields copies alternating key/value pairs into dst. Non-string keys
// are skipped. Error values are stored as their message so they survive
// JSON encoding.
func mergeFields(dst map[string]any, keysAndValues []any) {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, isErr := keysAndValues[i+1].(error); isErr && err != nil {
			dst[key] = err.Error()
			continue
		}
		dst[key] = keysAndValues[i+1]
	}
}

// MarshalJSON flattens fields into the root object. Empty optional
// attributes are omitted.
func (e Entry) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(e.Fields)+7)

	for k, v := range e.Fields {
		m[k] = v
	}

	m["timestamp"] = e.Timestamp.UTC().Format(time.RFC3339Nano)
	m["level"] = e.Level.String()
	m["msg"] = e.Message

	optional := map[string]string{
		"caller":        e.Caller,
		"component":     e.Component,
		"request_id":    e.RequestID,
		"collection_id": e.CollectionID,
	}
	for k, v := range optional {
		if v != "" {
			m[k] = v
		}
	}

	return json.Marshal(m)
}
