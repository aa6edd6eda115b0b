package observability

import (
	"context"
	"regexp"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const TraceHeader = "X-Trace-Id"

var traceIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

type traceKey struct{}

// ResolveTraceID keeps a well-formed incoming id and otherwise makes a new one.
func ResolveTraceID(incoming string) string {
	if traceIDPattern.MatchString(incoming) {
		return incoming
	}
	return uuid.NewString()
}

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}

// Logger returns base with the trace id of ctx attached, if any.
func Logger(ctx context.Context, base *zap.Logger) *zap.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	if id := TraceID(ctx); id != "" {
		return base.With(zap.String("trace_id", id))
	}
	return base
}
