package dispatch

import "context"

type requestIDKey struct{}

// WithRequestID attaches an inbound request id to ctx so that dispatch's
// retry loop can log every attempt it makes on behalf of that request under
// the same request_id field.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// requestIDFromContext returns the id attached by WithRequestID, or "" if
// none was attached (e.g. dispatches originating from the CLI).
func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
