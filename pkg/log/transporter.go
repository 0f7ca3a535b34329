package log

// Transporter is a destination for log entries. The buffer worker calls
// Write from a single goroutine; Close is called once, after the last Write.
type Transporter interface {
	Name() string
	Write(entry Entry) error
	Close() error
}

// AtLeast forwards only entries at or above min to t. It lets one logger
// feed a verbose file while keeping the console quiet.
func AtLeast(min Level, t Transporter) Transporter {
	return &levelFilter{min: min, next: t}
}

type levelFilter struct {
	min  Level
	next Transporter
}

func (f *levelFilter) Name() string { return f.next.Name() + ">=" + f.min.String() }

func (f *levelFilter) Write(entry Entry) error {
	if !f.min.Enables(entry.Level) {
		return nil
	}
	return f.next.Write(entry)
}

func (f *levelFilter) Close() error { return f.next.Close() }
