package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"deniedpage/edge-service/internal/page"
)

func newRouter(t *testing.T) *Router {
	t.Helper()
	fx := newFixture(t, fullIdentity, http.StatusOK)
	renderer, err := page.NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	return NewRouter(fx.handler, renderer)
}

func TestRouter_UnknownPathsServeThePage(t *testing.T) {
	rt := newRouter(t)

	for _, path := range []string{"/", "/admin", "/api/unknown", "/deep/nested/path", "/favicon.ico"} {
		rec := httptest.NewRecorder()
		rt.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", path, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Access Denied") {
			t.Errorf("%s: did not serve the denial page", path)
		}
	}
}

func TestRouter_ExactPathDispatch(t *testing.T) {
	rt := newRouter(t)

	rec := httptest.NewRecorder()
	rt.ServeHTTP(rec, httptest.NewRequest("GET", "/api/networkinfo", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "timezone") {
		t.Errorf("networkinfo: %d %s", rec.Code, rec.Body.String())
	}

	// A prefix of an API path is not an API path.
	rec = httptest.NewRecorder()
	rt.ServeHTTP(rec, httptest.NewRequest("GET", "/api/networkinfo/extra", nil))
	if !strings.Contains(rec.Body.String(), "Access Denied") {
		t.Error("subpath of an endpoint should fall through to the page")
	}
}

func TestRouter_PreflightIs204(t *testing.T) {
	rt := newRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/userdetails", nil)
	req.Header.Set("Origin", "https://macharpe.com")
	rec := httptest.NewRecorder()
	rt.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("preflight missing CORS headers")
	}
	if rec.Body.Len() != 0 {
		t.Error("preflight should have no body")
	}
}

func TestRouter_Script(t *testing.T) {
	rt := newRouter(t)

	rec := httptest.NewRecorder()
	rt.ServeHTTP(rec, httptest.NewRequest("GET", "/api/js", nil))
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/javascript") {
		t.Errorf("content type = %q", ct)
	}
}
