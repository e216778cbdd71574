package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func assertCORSHeaders(t *testing.T, rec *httptest.ResponseRecorder, wantOrigin string) {
	t.Helper()
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != wantOrigin {
		t.Fatalf("expected allow origin %q, got %q", wantOrigin, got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, PUT, DELETE, OPTIONS" {
		t.Fatalf("unexpected allow methods %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type, Authorization, X-API-Key" {
		t.Fatalf("unexpected allow headers %q", got)
	}
	if got := rec.Header().Get("Access-Control-Expose-Headers"); got != "X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset" {
		t.Fatalf("unexpected expose headers %q", got)
	}
}

func TestCORSWildcardOnEveryResponse(t *testing.T) {
	called := false
	mw := CORS([]string{"*"})
	req := httptest.NewRequest(http.MethodPost, "/v1/contact", nil)
	rec := httptest.NewRecorder()

	mw(okHandler(&called)).ServeHTTP(rec, req)

	if !called {
		t.Fatalf("expected handler to be called")
	}
	assertCORSHeaders(t, rec, "*")
}

func TestCORSHeadersOnErrorResponses(t *testing.T) {
	mw := CORS(nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/contact", nil)
	rec := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	assertCORSHeaders(t, rec, "*")
}

func TestCORSPreflightReturns200(t *testing.T) {
	called := false
	mw := CORS([]string{"*"})
	req := httptest.NewRequest(http.MethodOptions, "/v1/contact", nil)
	req.Header.Set("Origin", "https://synura.ai")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()

	mw(okHandler(&called)).ServeHTTP(rec, req)

	if called {
		t.Fatalf("expected preflight to short-circuit")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	assertCORSHeaders(t, rec, "*")
}

func TestCORSAllowsListedOrigin(t *testing.T) {
	called := false
	mw := CORS([]string{"https://synura.ai"})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://synura.ai")
	rec := httptest.NewRecorder()

	mw(okHandler(&called)).ServeHTTP(rec, req)

	assertCORSHeaders(t, rec, "https://synura.ai")
	if rec.Header().Get("Vary") != "Origin" {
		t.Fatalf("expected Vary: Origin")
	}
}

func TestCORSOmitsOriginForUnknownOrigin(t *testing.T) {
	called := false
	mw := CORS([]string{"https://synura.ai"})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()

	mw(okHandler(&called)).ServeHTTP(rec, req)

	if !called {
		t.Fatalf("expected handler to be called")
	}
	assertCORSHeaders(t, rec, "")
}
