package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestRequestLogger(t *testing.T) {
	t.Run("passes through status", func(t *testing.T) {
		var called bool
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusNotFound)
		})

		req := httptest.NewRequest(http.MethodGet, "/api/resources/x/draft", nil)
		rr := httptest.NewRecorder()
		RequestLogger(inner).ServeHTTP(rr, req)

		if !called {
			t.Error("next handler should have been called")
		}
		if rr.Code != http.StatusNotFound {
			t.Errorf("status: got %d, want 404", rr.Code)
		}
	})

	t.Run("assigns a request id", func(t *testing.T) {
		var seen string
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = RequestID(r.Context())
		})

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rr := httptest.NewRecorder()
		RequestLogger(inner).ServeHTTP(rr, req)

		got := rr.Header().Get(RequestIDHeader)
		if _, err := uuid.Parse(got); err != nil {
			t.Errorf("request id %q is not a uuid: %v", got, err)
		}
		if seen != got {
			t.Errorf("context id: got %q, want %q", seen, got)
		}
	})

	t.Run("echoes client request id", func(t *testing.T) {
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

		req := httptest.NewRequest(http.MethodPost, "/api/sites", nil)
		req.Header.Set(RequestIDHeader, "trace-123")
		rr := httptest.NewRecorder()
		RequestLogger(inner).ServeHTTP(rr, req)

		if got := rr.Header().Get(RequestIDHeader); got != "trace-123" {
			t.Errorf("request id: got %q, want %q", got, "trace-123")
		}
	})
}

func TestRequestIDWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := RequestID(req.Context()); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestResponseWriter(t *testing.T) {
	t.Run("WriteHeader only captures first call", func(t *testing.T) {
		rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}

		rw.WriteHeader(http.StatusConflict)
		rw.WriteHeader(http.StatusInternalServerError)

		if rw.statusCode != http.StatusConflict {
			t.Errorf("statusCode: got %d, want 409", rw.statusCode)
		}
	})

	t.Run("Write counts bytes and defaults to 200", func(t *testing.T) {
		rw := &responseWriter{ResponseWriter: httptest.NewRecorder()}

		rw.Write([]byte("hello"))
		rw.Write([]byte(" world"))

		if rw.statusCode != http.StatusOK {
			t.Errorf("statusCode: got %d, want 200", rw.statusCode)
		}
		if rw.bytes != 11 {
			t.Errorf("bytes: got %d, want 11", rw.bytes)
		}
	})

	t.Run("Write does not override explicit WriteHeader", func(t *testing.T) {
		rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}

		rw.WriteHeader(http.StatusCreated)
		rw.Write([]byte("created"))

		if rw.statusCode != http.StatusCreated {
			t.Errorf("statusCode: got %d, want 201", rw.statusCode)
		}
	})
}
