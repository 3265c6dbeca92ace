package server

import (
	"log/slog"
	"net/http"
	"time"
)

// requireWriteKey gates mutating requests behind the X-API-Key header.
// Safe methods pass through untouched; on a tailnet deployment reads
// are already inside the perimeter.
func requireWriteKey(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			switch key := r.Header.Get("X-API-Key"); {
			case key == "":
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing API key"})
			case key != apiKey:
				writeJSON(w, http.StatusForbidden, map[string]string{"error": "invalid API key"})
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// requestLogger emits one slog line per request with the response
// status and size.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)
			log.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.status,
				"bytes", rw.bytes,
				"remote", r.RemoteAddr,
				"elapsed", time.Since(start).Round(time.Millisecond).String(),
			)
		})
	}
}

// corsHeaders answers preflights and opens the API to cross-origin
// callers, so a browser-based dashboard can talk to it directly.
func corsHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// recordingWriter captures the status code and body size for the
// request log.
type recordingWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *recordingWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	n, err := w.ResponseWriter.Write(p)
	w.bytes += n
	return n, err
}
