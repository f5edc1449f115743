package httpmiddleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

// requestIDKey is the context key for the request ID value.
type requestIDKey struct{}

// RequestIDFromContext extracts the request ID from the context.
// It returns an empty string if no request ID is present.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// WithRequestID returns a context carrying id. Outgoing calls made with it
// reuse the id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns a middleware that assigns a request ID to every request.
// It reuses the incoming X-Request-ID header when present and valid, and
// generates a UUID otherwise. Incoming values must be at most 128 bytes of
// printable ASCII (0x20 to 0x7E).
//
// The request ID is:
//   - Set on the response X-Request-ID header.
//   - Stored in the request context (retrieve with RequestIDFromContext).
//   - Forwarded by larekapi on calls made with that context.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderRequestID)
			if !validRequestID(id) {
				id = uuid.New().String()
			}
			w.Header().Set(HeaderRequestID, id)
			next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), id)))
		})
	}
}

// validRequestID accepts 1 to 128 bytes of printable ASCII.
func validRequestID(id string) bool {
	if id == "" || len(id) > 128 {
		return false
	}
	for i := range len(id) {
		if id[i] < 0x20 || id[i] > 0x7E {
			return false
		}
	}
	return true
}
