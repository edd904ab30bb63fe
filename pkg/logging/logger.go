package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/toozej/go-thoroughbred/pkg/config"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const (
	// CorrelationIDKey is the context key for correlation IDs
	CorrelationIDKey ContextKey = "correlation_id"
)

const timestampFormat = "2006-01-02T15:04:05.000Z07:00"

// Logger wraps logrus.Logger with domain specific helpers
type Logger struct {
	*logrus.Logger
}

// NewLogger creates a new configured logger instance
func NewLogger(cfg config.LoggingConfig) *Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if strings.EqualFold(cfg.Format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: timestampFormat,
		})
	} else {
		// JSON unless text was asked for
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	}

	if strings.EqualFold(cfg.Output, "stderr") {
		logger.SetOutput(os.Stderr)
	} else {
		logger.SetOutput(os.Stdout)
	}

	return &Logger{Logger: logger}
}

// ContextWithCorrelationID returns a copy of ctx carrying id
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, id)
}

// CorrelationID returns the correlation ID stored in ctx, if any
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(CorrelationIDKey).(string)
	return id
}

// WithCorrelationID adds a correlation ID to the logger context
func (l *Logger) WithCorrelationID(correlationID string) *logrus.Entry {
	return l.WithField("correlation_id", correlationID)
}

// WithContext extracts correlation ID from context and adds it to the logger
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	if id := CorrelationID(ctx); id != "" {
		return l.WithCorrelationID(id)
	}
	return l.WithFields(logrus.Fields{})
}

// WithComponent adds a component field to the logger for better categorization
func (l *Logger) WithComponent(component string) *logrus.Entry {
	return l.WithField("component", component)
}

// WithOperation adds an operation field to the logger for tracking specific operations
func (l *Logger) WithOperation(operation string) *logrus.Entry {
	return l.WithField("operation", operation)
}

// FetchSummary is what LogFetch reports about a completed fetch
type FetchSummary struct {
	ExternalID    string
	Races         int
	Registrations int
	Skipped       int
	Cancelled     int
	Duration      time.Duration
}

// LogFetch logs the outcome of one horse detail fetch
func (l *Logger) LogFetch(ctx context.Context, summary FetchSummary, err error) {
	entry := l.WithContext(ctx).WithFields(logrus.Fields{
		"component":     "scraper",
		"operation":     "fetch",
		"external_id":   summary.ExternalID,
		"races":         summary.Races,
		"registrations": summary.Registrations,
		"skipped_rows":  summary.Skipped,
		"cancelled":     summary.Cancelled,
		"duration_ms":   summary.Duration.Milliseconds(),
	})

	if err != nil {
		entry.WithError(err).Error("Horse detail fetch failed")
		return
	}
	entry.Info("Horse detail fetched")
}

// LogRowSkipped logs a race table row that could not be classified
func (l *Logger) LogRowSkipped(ctx context.Context, externalID, reason string, cells []string) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"component":   "classifier",
		"operation":   "skip_row",
		"external_id": externalID,
		"reason":      reason,
		"cells":       cells,
	}).Debug("Row skipped")
}

// LogSchemaAnomaly logs a page layout drift warning
func (l *Logger) LogSchemaAnomaly(ctx context.Context, externalID, details string) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"component":   "schema",
		"operation":   "resolve_columns",
		"external_id": externalID,
		"details":     details,
	}).Warn("Page layout anomaly detected")
}

// LogSecurityEvent logs security-related events
func (l *Logger) LogSecurityEvent(ctx context.Context, eventType, clientIP, userAgent, details string) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"component":  "security",
		"operation":  "security_event",
		"event_type": eventType,
		"client_ip":  clientIP,
		"user_agent": userAgent,
		"details":    details,
	}).Warn("Security event detected")
}

// LogAPIRequest logs API request details
func (l *Logger) LogAPIRequest(ctx context.Context, method, path, clientIP, userAgent string, statusCode int, duration int64) {
	entry := l.WithContext(ctx).WithFields(logrus.Fields{
		"component":   "http",
		"operation":   "api_request",
		"method":      method,
		"path":        path,
		"client_ip":   clientIP,
		"user_agent":  userAgent,
		"status_code": statusCode,
		"duration_ms": duration,
	})

	switch {
	case statusCode >= 500:
		entry.Error("API request completed with server error")
	case statusCode >= 400:
		entry.Warn("API request completed with client error")
	default:
		entry.Info("API request completed successfully")
	}
}

// SetOutput allows changing the output destination (useful for testing)
func (l *Logger) SetOutput(output io.Writer) {
	l.Logger.SetOutput(output)
}
