package transporters

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"feedthread/pkg/log"
)

// File appends JSON lines to a log file. The watcher binary uses it so
// long-running sessions keep their history across restarts.
type File struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

// NewFile opens (or creates) path for appending.
func NewFile(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return &File{path: path, f: f}, nil
}

func (t *File) Name() string { return "file:" + t.path }

// Write encodes the entry as one JSON line.
func (t *File) Write(entry log.Entry) error {
	return writeLine(&t.mu, t.f, entry)
}

// Close syncs and closes the file.
func (t *File) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.f.Sync(); err != nil {
		t.f.Close()
		return err
	}
	return t.f.Close()
}
