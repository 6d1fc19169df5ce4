// Package httpmiddleware provides the HTTP server middleware chain:
// panic recovery, request IDs, CORS, rate limiting, and request logging.
package httpmiddleware

import "net/http"

// Middleware wraps an http.Handler with additional behaviour.
type Middleware func(http.Handler) http.Handler

// Wrap applies middlewares to h. The first middleware in the list becomes the
// outermost one, so it sees the request first and the response last.
func Wrap(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
