package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/toozej/go-thoroughbred/pkg/logging"
)

// CorrelationHeader carries the request correlation ID in both directions.
const CorrelationHeader = "X-Correlation-ID"

// LoggingMiddleware provides HTTP request logging with correlation IDs
type LoggingMiddleware struct {
	logger *logging.Logger
}

// NewLoggingMiddleware creates a new logging middleware instance
func NewLoggingMiddleware(logger *logging.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{
		logger: logger,
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.written {
		return
	}
	rw.statusCode = code
	rw.written = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(data []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(data)
}

// LogRequests tags the request with a correlation ID and logs its outcome.
// A well-formed inbound X-Correlation-ID is kept so batch callers can follow
// one horse through several services.
func (lm *LoggingMiddleware) LogRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		correlationID := correlationIDFrom(r)
		ctx := logging.ContextWithCorrelationID(r.Context(), correlationID)
		r = r.WithContext(ctx)
		w.Header().Set(CorrelationHeader, correlationID)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		lm.logger.WithContext(ctx).WithFields(map[string]interface{}{
			"component":  "http",
			"operation":  "request_start",
			"method":     r.Method,
			"path":       r.URL.Path,
			"query":      r.URL.RawQuery,
			"client_ip":  getClientIP(r),
			"user_agent": r.UserAgent(),
		}).Debug("HTTP request started")

		next.ServeHTTP(rw, r)

		lm.logger.LogAPIRequest(
			ctx,
			r.Method,
			r.URL.Path,
			getClientIP(r),
			r.UserAgent(),
			rw.statusCode,
			time.Since(start).Milliseconds(),
		)
	})
}

func correlationIDFrom(r *http.Request) string {
	if inbound := r.Header.Get(CorrelationHeader); inbound != "" {
		if id, err := uuid.Parse(inbound); err == nil {
			return id.String()
		}
	}
	return uuid.NewString()
}
