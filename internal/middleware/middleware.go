// Package middleware provides HTTP middleware for the debug listener.
package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gkertesz/tvgrab/internal/metrics"
)

// Metrics is a chi middleware that counts served requests.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unknown"
		}

		metrics.ObserveHTTPRequest(r.Method, route, ww.status)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
