package logging

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// RequestHeaderRequestID is the header carrying the request ID.
const RequestHeaderRequestID = "X-Request-ID"

// HTTPMiddleware logs one line per HTTP request.
type HTTPMiddleware struct {
	logger *slog.Logger
}

// NewHTTPMiddleware creates an HTTP logging middleware.
func NewHTTPMiddleware(logger *slog.Logger) *HTTPMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPMiddleware{logger: logger.With(slog.String("component", "http"))}
}

// Handler returns the middleware handler.
func (m *HTTPMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(RequestHeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestHeaderRequestID, requestID)

		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		level := slog.LevelInfo
		switch {
		case wrapped.status >= 500:
			level = slog.LevelError
		case wrapped.status >= 400:
			level = slog.LevelWarn
		}

		m.logger.LogAttrs(r.Context(), level, "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", wrapped.status),
			slog.Int("bytes", wrapped.bytes),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", requestID),
			slog.String("remote", r.RemoteAddr))
	})
}

// responseWriter captures the status code and response size.
type responseWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *responseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}
