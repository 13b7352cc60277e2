package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matthewgall/epicdeals/internal/config"
)

func newTestServer(t *testing.T, mutate func(cfg *config.Config)) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.App.DocsDir = ""
	cfg.Cache.Sweep = ""
	if mutate != nil {
		mutate(cfg)
	}

	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return s
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	s.ServeHTTP(resp, req)
	return resp
}

func decodeBody(t *testing.T, resp *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response %q: %v", resp.Body.String(), err)
	}
	return payload
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, nil)

	resp := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	payload := decodeBody(t, resp)
	if payload["status"] != "ok" {
		t.Fatalf("unexpected payload %v", payload)
	}
	providers := payload["providers"].(map[string]interface{})
	if providers["ebay"] != false || providers["compare"] != false || providers["cache"] != false {
		t.Fatalf("unexpected providers %v", providers)
	}
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, nil)

	resp := serve(s, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if resp.Code != http.StatusNotFound || decodeBody(t, resp)["error"] != "not_found" {
		t.Fatalf("unexpected 404 response %d %s", resp.Code, resp.Body.String())
	}

	resp = serve(s, httptest.NewRequest(http.MethodDelete, "/search", nil))
	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}
}

func TestDocsUnavailableWithoutDocument(t *testing.T) {
	s := newTestServer(t, nil)

	resp := serve(s, httptest.NewRequest(http.MethodGet, "/docs", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}

func TestRecoverMiddleware(t *testing.T) {
	s := newTestServer(t, nil)
	handler := s.recoverMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/search", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	if decodeBody(t, resp)["error"] != "internal_server_error" {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, nil)

	resp := serve(s, httptest.NewRequest(http.MethodOptions, "/compare", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if resp.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header")
	}
}

func TestStartJobs(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.Cache.Provider = "sqlite"
		cfg.Cache.Directory = t.TempDir()
		cfg.Cache.Sweep = "@every 1h"
	})

	if err := s.StartJobs(); err != nil {
		t.Fatalf("StartJobs() error = %v", err)
	}
	if s.jobs == nil || len(s.jobs.Entries()) != 1 {
		t.Fatalf("expected one scheduled job")
	}
	s.StopJobs()
	if s.jobs != nil {
		t.Fatal("StopJobs() should clear the scheduler")
	}

	bad := newTestServer(t, func(cfg *config.Config) {
		cfg.Deals.Prewarm = "not a schedule"
	})
	if err := bad.StartJobs(); err == nil {
		t.Fatal("expected an error for an invalid schedule")
	}
}

func TestSweepCacheRemovesExpired(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.Cache.Provider = "sqlite"
		cfg.Cache.Directory = t.TempDir()
	})

	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()
	if err := s.cache.Set(ctx, "brave", "web:stale", []string{"x"}, time.Millisecond); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	s.sweepCache()

	removed, err := s.cache.ClearExpired(ctx)
	if err != nil {
		t.Fatalf("ClearExpired() error = %v", err)
	}
	if removed != 0 {
		t.Fatalf("expected the sweep to have removed the stale entry, %d left", removed)
	}
}

func TestNewClearsCacheOnStart(t *testing.T) {
	dir := t.TempDir()
	seed := newTestServer(t, func(cfg *config.Config) {
		cfg.Cache.Provider = "sqlite"
		cfg.Cache.Directory = dir
	})
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()
	if err := seed.cache.Set(ctx, "brave", "web:tv", []string{"x"}, time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	s := newTestServer(t, func(cfg *config.Config) {
		cfg.Cache.Provider = "sqlite"
		cfg.Cache.Directory = dir
		cfg.Cache.ClearOnStart = true
	})
	entry, err := s.cache.Get(ctx, "brave", "web:tv")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if entry != nil {
		t.Fatal("expected the cache to be empty after startup")
	}
}

func countingServer(t *testing.T, calls *int32, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return server
}

func jsonHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func TestParseSearchRequestRejectsBadInput(t *testing.T) {
	s := newTestServer(t, nil)

	for _, target := range []string{
		"/search?conditions=mint",
		"/search?buyingOptions=barter",
		"/search?min=-5",
		"/search?min=abc",
		"/search?min=NaN",
		"/search?max=Inf",
		"/search?max=-Infinity",
		"/search?limit=x",
		"/search?offset=-1",
	} {
		resp := serve(s, httptest.NewRequest(http.MethodGet, target, nil))
		if resp.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", target, resp.Code)
		}
	}
}

func TestParseSearchRequestDefaults(t *testing.T) {
	s := newTestServer(t, nil)

	req, err := s.parseSearchRequest(httptest.NewRequest(http.MethodGet, "/search?q=airpods&limit=500&brands=apple,%20sony,&max=100&min=250", nil))
	if err != nil {
		t.Fatalf("parseSearchRequest() error = %v", err)
	}
	if req.Limit != 200 || req.Offset != 0 || req.Marketplace != "EBAY_US" {
		t.Fatalf("unexpected paging %+v", req)
	}
	if req.Conditions != "refurbished" || req.BuyingOptions != "FIXED_PRICE" {
		t.Fatalf("unexpected facets %+v", req)
	}
	if len(req.Brands) != 2 || req.Brands[1] != "sony" {
		t.Fatalf("unexpected brands %v", req.Brands)
	}
	if *req.Min != 100 || *req.Max != 250 {
		t.Fatalf("expected swapped range, got %v..%v", *req.Min, *req.Max)
	}
}
