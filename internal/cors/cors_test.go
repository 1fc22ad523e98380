package cors

import (
	"net/http/httptest"
	"testing"

	"deniedpage/edge-service/internal/config"
)

func testPolicy() *Policy {
	return NewPolicy(config.CORSCfg{
		AllowedOrigins: []string{"https://app.macharpe.com"},
		AllowedSuffix:  ".macharpe.com",
		FallbackOrigin: "https://denied.macharpe.com",
	})
}

func TestHeaders_NoOrigin(t *testing.T) {
	p := testPolicy()
	r := httptest.NewRequest("GET", "/api/env", nil)

	h := p.Headers(r)
	if _, ok := h["Access-Control-Allow-Origin"]; ok {
		t.Error("same-origin request should not get Allow-Origin")
	}
	if h["Access-Control-Allow-Credentials"] != "true" {
		t.Error("expected credentials header")
	}
	if h["Access-Control-Allow-Methods"] == "" {
		t.Error("expected methods header")
	}
}

func TestHeaders_AllowedOrigin(t *testing.T) {
	p := testPolicy()
	r := httptest.NewRequest("GET", "/api/env", nil)
	r.Header.Set("Origin", "https://app.macharpe.com")

	h := p.Headers(r)
	if got := h["Access-Control-Allow-Origin"]; got != "https://app.macharpe.com" {
		t.Errorf("expected origin echoed, got %q", got)
	}
}

func TestHeaders_SuffixMatch(t *testing.T) {
	p := testPolicy()
	r := httptest.NewRequest("GET", "/api/env", nil)
	r.Header.Set("Origin", "https://tools.macharpe.com")

	h := p.Headers(r)
	if got := h["Access-Control-Allow-Origin"]; got != "https://tools.macharpe.com" {
		t.Errorf("expected suffix-matched origin echoed, got %q", got)
	}
}

func TestHeaders_HostileOriginGetsFallback(t *testing.T) {
	p := testPolicy()
	r := httptest.NewRequest("GET", "/api/env", nil)
	r.Header.Set("Origin", "https://evil.example")

	h := p.Headers(r)
	if got := h["Access-Control-Allow-Origin"]; got != "https://denied.macharpe.com" {
		t.Errorf("expected fallback origin, got %q", got)
	}
}
