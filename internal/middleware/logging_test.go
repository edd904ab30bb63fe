package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/toozej/go-thoroughbred/pkg/logging"
)

func lastLogEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &entry); err != nil {
		t.Fatalf("Failed to parse log entry as JSON: %v", err)
	}
	return entry
}

func TestNewLoggingMiddleware(t *testing.T) {
	logger := testLogger(io.Discard)
	middleware := NewLoggingMiddleware(logger)

	if middleware == nil {
		t.Fatal("NewLoggingMiddleware returned nil")
	}
	if middleware.logger != logger {
		t.Error("LoggingMiddleware logger not set correctly")
	}
}

func TestLoggingMiddleware_LogRequests(t *testing.T) {
	var buf bytes.Buffer
	middleware := NewLoggingMiddleware(testLogger(&buf))

	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if logging.CorrelationID(r.Context()) == "" {
			t.Error("Expected correlation ID in request context")
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{}"))
	})

	req := httptest.NewRequest("GET", "/api/horses/12345?include=1", http.NoBody)
	req.Header.Set("User-Agent", "test-agent")
	req.RemoteAddr = "192.168.1.1:12345"
	rr := httptest.NewRecorder()

	middleware.LogRequests(testHandler).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status code 200, got %d", rr.Code)
	}

	correlationID := rr.Header().Get(CorrelationHeader)
	if _, err := uuid.Parse(correlationID); err != nil {
		t.Errorf("Expected a UUID correlation ID, got %q", correlationID)
	}

	if lines := strings.Split(strings.TrimSpace(buf.String()), "\n"); len(lines) < 2 {
		t.Fatalf("Expected at least 2 log entries, got %d", len(lines))
	}

	entry := lastLogEntry(t, &buf)
	expectedFields := map[string]interface{}{
		"component":      "http",
		"operation":      "api_request",
		"method":         "GET",
		"path":           "/api/horses/12345",
		"status_code":    float64(200),
		"level":          "info",
		"client_ip":      "192.168.1.1",
		"correlation_id": correlationID,
	}
	for key, expectedValue := range expectedFields {
		if entry[key] != expectedValue {
			t.Errorf("Expected %s to be %v, got %v", key, expectedValue, entry[key])
		}
	}

	if _, ok := entry["duration_ms"].(float64); !ok {
		t.Error("Expected duration_ms to be a number")
	}
}

func TestLoggingMiddleware_StatusLevels(t *testing.T) {
	tests := []struct {
		name   string
		status int
		level  string
	}{
		{"success", http.StatusOK, "info"},
		{"not found", http.StatusNotFound, "warning"},
		{"upstream failure", http.StatusBadGateway, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			middleware := NewLoggingMiddleware(testLogger(&buf))
			handler := middleware.LogRequests(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/horses/1/refresh", http.NoBody))

			entry := lastLogEntry(t, &buf)
			if entry["level"] != tt.level {
				t.Errorf("Expected %s level for %d, got %v", tt.level, tt.status, entry["level"])
			}
			if entry["status_code"] != float64(tt.status) {
				t.Errorf("Expected status_code %d, got %v", tt.status, entry["status_code"])
			}
		})
	}
}

func TestLoggingMiddleware_InboundCorrelationID(t *testing.T) {
	inbound := uuid.NewString()

	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{"valid id is kept", inbound, true},
		{"garbage is replaced", "not-a-uuid; DROP", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured string
			middleware := NewLoggingMiddleware(testLogger(io.Discard))
			handler := middleware.LogRequests(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				captured = logging.CorrelationID(r.Context())
			}))

			req := httptest.NewRequest("GET", "/healthz", http.NoBody)
			req.Header.Set(CorrelationHeader, tt.header)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if got := captured == tt.header; got != tt.keep {
				t.Errorf("expected keep=%v, captured %q", tt.keep, captured)
			}
			if rr.Header().Get(CorrelationHeader) != captured {
				t.Errorf("Expected context correlation ID %s to match header %s",
					captured, rr.Header().Get(CorrelationHeader))
			}
		})
	}
}

func TestResponseWriter_WriteHeader(t *testing.T) {
	rr := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rr}

	rw.WriteHeader(http.StatusCreated)
	if rw.statusCode != http.StatusCreated {
		t.Errorf("Expected status code %d, got %d", http.StatusCreated, rw.statusCode)
	}
	if !rw.written {
		t.Error("Expected written to be true after WriteHeader")
	}

	rw.WriteHeader(http.StatusBadRequest)
	if rw.statusCode != http.StatusCreated {
		t.Errorf("Expected status code to remain %d, got %d", http.StatusCreated, rw.statusCode)
	}
	if rr.Code != http.StatusCreated {
		t.Errorf("Expected underlying writer to keep %d, got %d", http.StatusCreated, rr.Code)
	}
}

func TestResponseWriter_Write(t *testing.T) {
	rr := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rr}

	data := []byte("test data")
	n, err := rw.Write(data)
	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if n != len(data) {
		t.Errorf("Expected to write %d bytes, wrote %d", len(data), n)
	}
	if rw.statusCode != http.StatusOK {
		t.Errorf("Expected default status code %d, got %d", http.StatusOK, rw.statusCode)
	}
	if !rw.written {
		t.Error("Expected written to be true after Write")
	}
}
