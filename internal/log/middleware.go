package log

import (
	"net/http"
	"time"
)

// Middleware logs one line per HTTP request with method, path, status and latency.
// It expects a request ID to already be present in the context.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lw := &loggingWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(lw, r)

			logger := WithComponentFromContext(r.Context(), "http")
			logger.Info().
				Str("method", r.Method).
				Str(FieldPath, r.URL.Path).
				Int("status", lw.status).
				Int("bytes", lw.bytes).
				Dur("duration", time.Since(start)).
				Str("remote", r.RemoteAddr).
				Msg("request")
		})
	}
}

type loggingWriter struct {
	http.ResponseWriter
	status  int
	bytes   int
	written bool
}

func (w *loggingWriter) WriteHeader(status int) {
	if !w.written {
		w.status = status
		w.written = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *loggingWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}
