package log

import (
	"context"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
)

// DefaultBufferSize is the number of entries queued before the oldest are
// dropped.
const DefaultBufferSize = 1000

// Logger writes structured entries through an async buffer.
type Logger struct {
	mu         sync.RWMutex
	level      Level
	component  string
	buffer     *Buffer
	baseFields map[string]any
}

// New creates a logger with the given minimum level and transporters.
func New(level Level, transporters ...Transporter) *Logger {
	return &Logger{
		level:      level,
		buffer:     NewBuffer(DefaultBufferSize, transporters...),
		baseFields: make(map[string]any),
	}
}

// With creates a child logger with additional base fields.
func (l *Logger) With(keysAndValues ...any) *Logger {
	child := l.clone()
	mergeFields(child.baseFields, keysAndValues)
	return child
}

// Named creates a child logger whose entries carry the component name.
func (l *Logger) Named(component string) *Logger {
	child := l.clone()
	if child.component != "" {
		child.component += "." + component
	} else {
		child.component = component
	}
	return child
}

func (l *Logger) clone() *Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()

	fields := make(map[string]any, len(l.baseFields))
	for k, v := range l.baseFields {
		fields[k] = v
	}
	return &Logger{
		level:      l.level,
		component:  l.component,
		buffer:     l.buffer,
		baseFields: fields,
	}
}

// Close flushes pending entries and closes the transporters.
func (l *Logger) Close() {
	l.buffer.Close()
}

func (l *Logger) log(level Level, ctx context.Context, msg string, keysAndValues ...any) {
	l.mu.RLock()
	enabled := l.level.Enables(level)
	l.mu.RUnlock()
	if !enabled {
		return
	}

	entry := NewEntry(level, msg)
	entry.Caller = caller(3)
	entry.Component = l.component

	l.mu.RLock()
	for k, v := range l.baseFields {
		entry.Fields[k] = v
	}
	l.mu.RUnlock()

	if ctx != nil {
		entry.RequestID = RequestIDFromContext(ctx)
		entry.CollectionID = CollectionIDFromContext(ctx)
		for k, v := range FieldsFromContext(ctx) {
			entry.Fields[k] = v
		}
	}

	mergeFields(entry.Fields, keysAndValues)

	l.buffer.Send(*entry)
}

// caller returns the file:line of the logging call site.
func caller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	return filepath.Base(file) + ":" + strconv.Itoa(line)
}

func (l *Logger) Trace(msg string, keysAndValues ...any) { l.log(Trace, nil, msg, keysAndValues...) }
func (l *Logger) Debug(msg string, keysAndValues ...any) { l.log(Debug, nil, msg, keysAndValues...) }
func (l *Logger) Info(msg string, keysAndValues ...any)  { l.log(Info, nil, msg, keysAndValues...) }
func (l *Logger) Warn(msg string, keysAndValues ...any)  { l.log(Warn, nil, msg, keysAndValues...) }
func (l *Logger) Error(msg string, keysAndValues ...any) { l.log(Error, nil, msg, keysAndValues...) }

// Fatal logs at Fatal level. It does not exit.
func (l *Logger) Fatal(msg string, keysAndValues ...any) { l.log(Fatal, nil, msg, keysAndValues...) }

func (l *Logger) DebugCtx(ctx context.Context, msg string, keysAndValues ...any) {
	l.log(Debug, ctx, msg, keysAndValues...)
}

func (l *Logger) InfoCtx(ctx context.Context, msg string, keysAndValues ...any) {
	l.log(Info, ctx, msg, keysAndValues...)
}

func (l *Logger) WarnCtx(ctx context.Context, msg string, keysAndValues ...any) {
	l.log(Warn, ctx, msg, keysAndValues...)
}

func (l *Logger) ErrorCtx(ctx context.Context, msg string, keysAndValues ...any) {
	l.log(Error, ctx, msg, keysAndValues...)
}

// --- Global Logger ---

var (
	globalLogger *Logger
	globalMu     sync.RWMutex

	discardOnce sync.Once
	discard     *Logger
)

// SetDefault sets the global default logger.
func SetDefault(l *Logger) {
	globalMu.Lock()
	globalLogger = l
	globalMu.Unlock()
}

// Default returns the global logger, or a logger that discards everything
// when none is set.
func Default() *Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()

	if l != nil {
		return l
	}
	discardOnce.Do(func() {
		discard = &Logger{
			level:      Fatal + 1,
			buffer:     NewBuffer(1, noopTransporter{}),
			baseFields: make(map[string]any),
		}
	})
	return discard
}

type noopTransporter struct{}

func (noopTransporter) Name() string      { return "noop" }
func (noopTransporter) Write(Entry) error { return nil }
func (noopTransporter) Close() error      { return nil }

func GlobalDebug(msg string, keysAndValues ...any) { Default().log(Debug, nil, msg, keysAndValues...) }
func GlobalInfo(msg string, keysAndValues ...any)  { Default().log(Info, nil, msg, keysAndValues...) }
func GlobalWarn(msg string, keysAndValues ...any)  { Default().log(Warn, nil, msg, keysAndValues...) }
func GlobalError(msg string, keysAndValues ...any) { Default().log(Error, nil, msg, keysAndValues...) }

func GlobalDebugCtx(ctx context.Context, msg string, keysAndValues ...any) {
	Default().log(Debug, ctx, msg, keysAndValues...)
}

func GlobalInfoCtx(ctx context.Context, msg string, keysAndValues ...any) {
	Default().log(Info, ctx, msg, keysAndValues...)
}

func GlobalWarnCtx(ctx context.Context, msg string, keysAndValues ...any) {
	Default().log(Warn, ctx, msg, keysAndValues...)
}

func GlobalErrorCtx(ctx context.Context, msg string, keysAndValues ...any) {
	Default().log(Error, ctx, msg, keysAndValues...)
}
