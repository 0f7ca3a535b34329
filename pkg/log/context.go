package log

import "context"

type contextKey int

const (
	requestIDKey contextKey = iota
	collectionIDKey
	fieldsKey
)

// WithRequestID adds an HTTP request ID to the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request ID, or "" when absent.
func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// WithCollectionID tags the context with the ID of one collection action.
// Every record saved during that action carries the same ID.
func WithCollectionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, collectionIDKey, id)
}

// CollectionIDFromContext returns the collection ID, or "" when absent.
func CollectionIDFromContext(ctx context.Context) string {
	return stringValue(ctx, collectionIDKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

// WithFields adds structured fields to the context, merged over any
// fields already present.
func WithFields(ctx context.Context, keysAndValues ...any) context.Context {
	existing := FieldsFromContext(ctx)
	fields := make(map[string]any, len(existing)+len(keysAndValues)/2)
	for k, v := range existing {
		fields[k] = v
	}
	mergeFields(fields, keysAndValues)

	return context.WithValue(ctx, fieldsKey, fields)
}

// FieldsFromContext returns the structured fields, or nil when none are set.
func FieldsFromContext(ctx context.Context) map[string]any {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(fieldsKey).(map[string]any)
	return fields
}
