package log

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
)

// Buffer queues entries for a background worker that writes them to every
// transporter. A full queue drops its oldest entry so logging never blocks
// the extraction path.
type Buffer struct {
	queue        chan Entry
	transporters []Transporter

	dropped   atomic.Int64
	closed    atomic.Bool
	closeOnce sync.Once
	stop      chan struct{}
	stopped   chan struct{}
}

// NewBuffer starts a worker delivering to transporters, with room for
// capacity pending entries.
func NewBuffer(capacity int, transporters ...Transporter) *Buffer {
	b := &Buffer{
		queue:        make(chan Entry, capacity),
		transporters: transporters,
		stop:         make(chan struct{}),
		stopped:      make(chan struct{}),
	}
	go b.run()
	return b
}

// Send enqueues entry. It is a no-op after Close.
func (b *Buffer) Send(entry Entry) {
	if b.closed.Load() {
		return
	}
	for attempt := 0; attempt < 2; attempt++ {
		select {
		case b.queue <- entry:
			return
		default:
		}
		// evict the oldest and retry once
		select {
		case <-b.queue:
			b.dropped.Add(1)
		default:
		}
	}
	b.dropped.Add(1)
}

// DroppedCount returns how many entries were lost to overflow.
func (b *Buffer) DroppedCount() int64 {
	return b.dropped.Load()
}

// Close drains the queue and closes the transporters. Later calls return
// immediately.
func (b *Buffer) Close() {
	b.closeOnce.Do(func() {
		b.closed.Store(true)
		close(b.stop)
		<-b.stopped

		for {
			select {
			case entry := <-b.queue:
				b.deliver(entry)
				continue
			default:
			}
			break
		}

		for _, t := range b.transporters {
			if err := t.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "log: close %s: %v\n", t.Name(), err)
			}
		}
	})
}

func (b *Buffer) run() {
	defer close(b.stopped)
	for {
		select {
		case entry := <-b.queue:
			b.deliver(entry)
		case <-b.stop:
			return
		}
	}
}

func (b *Buffer) deliver(entry Entry) {
	for _, t := range b.transporters {
		if err := t.Write(entry); err != nil {
			fmt.Fprintf(os.Stderr, "log: write %s: %v\n", t.Name(), err)
		}
	}
}
