package trace

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"spendsense/internal/log"
)

func TestMiddleware_AssignsRequestID(t *testing.T) {
	m := NewMiddleware(nil, log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)}))

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r)
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("request id = %q", seen)
	}
	if rr.Header().Get("X-Request-ID") != seen {
		t.Errorf("X-Request-ID = %q, want %q", rr.Header().Get("X-Request-ID"), seen)
	}

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "upstream-42")
	h.ServeHTTP(rr, req)
	if seen != "upstream-42" {
		t.Errorf("upstream request id not kept: %q", seen)
	}

	if got := m.GetMetrics().TotalRequests; got != 2 {
		t.Errorf("TotalRequests = %d, want 2", got)
	}
}

func TestMiddleware_CountsServerErrors(t *testing.T) {
	m := NewMiddleware(func(*http.Request) string { return "1.1.1.1" }, log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)}))
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if got := m.GetMetrics().ServerErrors; got != 1 {
		t.Errorf("ServerErrors = %d, want 1", got)
	}
}

func TestGetRequestID_Empty(t *testing.T) {
	if id := GetRequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()); id != "" {
		t.Errorf("GetRequestID() = %q, want empty", id)
	}
}
