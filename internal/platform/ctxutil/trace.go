package ctxutil

import "context"

type traceDataKey struct{}

// TraceData correlates one API call across the request log and trace spans.
// TraceID comes from the active otel span when there is one.
type TraceData struct {
	TraceID   string
	RequestID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

// GetTraceData returns nil outside an HTTP request, e.g. in pulsectl.
func GetTraceData(ctx context.Context) *TraceData {
	if td, ok := ctx.Value(traceDataKey{}).(*TraceData); ok {
		return td
	}
	return nil
}
