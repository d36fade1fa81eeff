package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTrafficLogger_PassesThrough(t *testing.T) {
	var flushed bool
	h := TrafficLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
			flushed = true
		}
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("Expected status %d, got %d", http.StatusTeapot, rec.Code)
	}
	if !flushed || !rec.Flushed {
		t.Error("Expected the wrapped writer to support flushing")
	}
}

func TestResponseWriter_HijackUnsupported(t *testing.T) {
	rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}
	if _, _, err := rw.Hijack(); err == nil {
		t.Error("Expected an error when the underlying writer cannot be hijacked")
	}
}
