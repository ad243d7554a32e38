package runtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestReadyz(t *testing.T) {
	ok := ReadyCheck{Name: "db", Check: func(context.Context) error { return nil }}
	down := ReadyCheck{Name: "kafka", Check: func(context.Context) error { return errors.New("dial refused") }}

	mux := NewBaseMuxWithReady(ok, ReadyCheck{Name: "skipped"})
	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}

	mux = NewBaseMuxWithReady(ok, down)
	rw = httptest.NewRecorder()
	mux.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rw.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rw.Code)
	}
	if !strings.Contains(rw.Body.String(), "kafka: dial refused") {
		t.Fatalf("unexpected body: %q", rw.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	rw := httptest.NewRecorder()
	NewBaseMuxWithReady().ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rw.Code != http.StatusOK || rw.Body.String() != "ok" {
		t.Fatalf("unexpected healthz response: %d %q", rw.Code, rw.Body.String())
	}
}
