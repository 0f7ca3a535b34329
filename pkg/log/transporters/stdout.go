package transporters

import (
	"encoding/json"
	"io"
	"os"
	"sync"

	"feedthread/pkg/log"
)

// Stdout writes JSON lines to stdout or any io.Writer.
type Stdout struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewStdout creates a transporter that writes to os.Stdout.
func NewStdout() *Stdout {
	return &Stdout{writer: os.Stdout}
}

// NewStdoutWithWriter creates a transporter writing to w.
func NewStdoutWithWriter(w io.Writer) *Stdout {
	return &Stdout{writer: w}
}

func (s *Stdout) Name() string { return "stdout" }

// Write encodes the entry as one JSON line.
func (s *Stdout) Write(entry log.Entry) error {
	return writeLine(&s.mu, s.writer, entry)
}

// Close is a no-op for stdout.
func (s *Stdout) Close() error {
	return nil
}

func writeLine(mu *sync.Mutex, w io.Writer, entry log.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	mu.Lock()
	defer mu.Unlock()
	_, err = w.Write(data)
	return err
}
