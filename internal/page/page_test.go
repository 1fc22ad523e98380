package page

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDenied(t *testing.T) {
	p, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	rec := httptest.NewRecorder()
	p.Denied(rec, httptest.NewRequest("GET", "/some/blocked/path", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Access Denied") {
		t.Error("page body missing title")
	}
	if !strings.Contains(body, "/api/js") {
		t.Error("page does not reference the client script")
	}
	if strings.Contains(body, "{{") {
		t.Error("unexpanded template markers in page")
	}

	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Cache-Control":          "no-store",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestScript(t *testing.T) {
	p, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	rec := httptest.NewRecorder()
	p.Script(rec, httptest.NewRequest("GET", "/api/js", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/javascript") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "loadUserData") {
		t.Error("script body looks wrong")
	}
}
