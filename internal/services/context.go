package services

import "context"

type contextKey string

const (
	runIDKey     contextKey = "run_id"
	threadIDKey  contextKey = "thread_id"
	channelIDKey contextKey = "channel_id"
	requestIDKey contextKey = "request_id"
)

// WithRunID annotates context with the pipeline run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext returns the pipeline run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithThreadID annotates context with the thread being extracted.
func WithThreadID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, threadIDKey, id)
}

// ThreadIDFromContext returns the thread identifier if present.
func ThreadIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(threadIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithChannelID annotates context with the chat channel identifier.
func WithChannelID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, channelIDKey, id)
}

// ChannelIDFromContext returns the channel identifier if present.
func ChannelIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(channelIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
