package routes

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/veritrace/veritrace-backend/pkg/config"
	"github.com/veritrace/veritrace-backend/pkg/logger"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Env = "test"
	return cfg
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "routes-test", Level: zerolog.Disabled, Output: io.Discard})
}

func TestRouterHealthLive(t *testing.T) {
	router := NewRouter(testConfig(), testLogger(), Dependencies{})

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected generated request id header")
	}
}

func TestRouterUnknownRoute(t *testing.T) {
	router := NewRouter(testConfig(), testLogger(), Dependencies{})

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestRouterPropagatesRequestID(t *testing.T) {
	router := NewRouter(testConfig(), testLogger(), Dependencies{})

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set("X-Request-Id", "fixed-id")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-Id"); got != "fixed-id" {
		t.Fatalf("expected request id echoed, got %q", got)
	}
}

func TestRouterServesMetricsWhenWired(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router := NewRouter(testConfig(), testLogger(), Dependencies{Metrics: metrics})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRouterVerifyWithoutServiceFailsClosed(t *testing.T) {
	router := NewRouter(testConfig(), testLogger(), Dependencies{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/verify/SOME-1-XXXXXX", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 without service, got %d", w.Code)
	}
}

func TestRouterWiresPublicSurface(t *testing.T) {
	router := NewRouter(testConfig(), testLogger(), Dependencies{})

	// With no services wired every route fails closed with 500; only an
	// unregistered path yields 404.
	for _, path := range []string{
		"/api/v1/verify/COFFEE-1714000000000-A1B2C3",
		"/api/v1/products/COFFEE-1714000000000-A1B2C3",
		"/api/v1/admin/stats",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code == http.StatusNotFound {
			t.Fatalf("expected %s to be routed, got 404", path)
		}
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected %s to fail closed with 500, got %d", path, w.Code)
		}
	}
}
