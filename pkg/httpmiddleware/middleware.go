// Package httpmiddleware contains the net/http middlewares of the storefront
// server.
package httpmiddleware

import (
	"net/http"

	"github.com/go-faster/jx"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Wrap applies middlewares to h. The first middleware is the outermost one.
func Wrap(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// writeError writes {"error": msg} with the given status, the same shape the
// storefront service uses for its errors.
func writeError(w http.ResponseWriter, status int, msg string) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("error")
	e.Str(msg)
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
