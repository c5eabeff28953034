package middleware

import (
	"io"
	"net/http"
)

// maxDrainBytes bounds the leftover body read after the handler. A longer
// body is just closed and the connection is not reused.
const maxDrainBytes = 256 << 10

// DrainAndCloseRequest drains whatever the handler left of the request body,
// so the connection can be reused.
func DrainAndCloseRequest() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			if r.Body != nil {
				_, _ = io.CopyN(io.Discard, r.Body, maxDrainBytes)
				_ = r.Body.Close()
			}
		})
	}
}
