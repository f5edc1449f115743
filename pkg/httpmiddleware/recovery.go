package httpmiddleware

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Recovery returns a middleware that recovers from panics, logs them with a
// stack trace and the request path, and responds with 500 Internal Server
// Error and a JSON error body. The connection is marked for closing.
//
// http.ErrAbortHandler is re-panicked so net/http can abort the response
// silently.
func Recovery() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				zctx.From(r.Context()).Error("Panic recovered",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path),
					zap.Stack("stack"),
				)
				w.Header().Set("Connection", "close")
				writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
