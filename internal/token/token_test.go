package token

import (
	"encoding/base64"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"
)

// makeToken builds an unsigned three-segment token with the given payload.
func makeToken(t *testing.T, payload map[string]any) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return header + "." + base64.RawURLEncoding.EncodeToString(body) + ".sig"
}

func TestExtract_HeaderFirst(t *testing.T) {
	e := Extractor{Header: "cf-access-jwt-assertion", Cookie: "CF_Authorization"}
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("cf-access-jwt-assertion", "header-token")
	r.Header.Set("Cookie", "CF_Authorization=cookie-token")

	if got := e.Extract(r); got != "header-token" {
		t.Errorf("expected header token to win, got %q", got)
	}
}

func TestExtract_CookieFallback(t *testing.T) {
	e := Extractor{Header: "cf-access-jwt-assertion", Cookie: "CF_Authorization"}
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Cookie", "other=1;  CF_Authorization=cookie-token; session=x")

	if got := e.Extract(r); got != "cookie-token" {
		t.Errorf("expected cookie token, got %q", got)
	}
}

func TestExtract_Absent(t *testing.T) {
	e := Extractor{Header: "cf-access-jwt-assertion", Cookie: "CF_Authorization"}
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Cookie", "other=1")

	if got := e.Extract(r); got != "" {
		t.Errorf("expected empty token, got %q", got)
	}
}

func TestDeviceID_DirectClaim(t *testing.T) {
	tok := makeToken(t, map[string]any{"device_id": "dev-123"})
	if got := DeviceID(tok); got != "dev-123" {
		t.Errorf("expected dev-123, got %q", got)
	}
}

func TestDeviceID_DeviceSessions(t *testing.T) {
	tok := makeToken(t, map[string]any{
		"device_sessions": []any{
			map[string]any{"device_id": "dev-456"},
		},
	})
	if got := DeviceID(tok); got != "dev-456" {
		t.Errorf("expected dev-456, got %q", got)
	}
}

func TestDeviceID_MalformedToken(t *testing.T) {
	// Two segments only: must fall through to the identity lookup, not error.
	if got := DeviceID("aGVhZGVy.cGF5bG9hZA"); got != "" {
		t.Errorf("expected empty device id for 2-part token, got %q", got)
	}
	if got := DeviceID("not-a-token"); got != "" {
		t.Errorf("expected empty device id for garbage, got %q", got)
	}
}

func TestDeviceID_NoDevice(t *testing.T) {
	tok := makeToken(t, map[string]any{"email": "user@example.com"})
	if got := DeviceID(tok); got != "" {
		t.Errorf("expected empty device id, got %q", got)
	}
}

func TestTiming(t *testing.T) {
	iat := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	exp := iat.Add(time.Hour)
	tok := makeToken(t, map[string]any{"iat": iat.Unix(), "exp": exp.Unix()})

	gotIat, gotExp := Timing(tok)
	if !gotIat.Equal(iat) || !gotExp.Equal(exp) {
		t.Errorf("timing mismatch: got (%v, %v), want (%v, %v)", gotIat, gotExp, iat, exp)
	}
}

func TestHash_Deterministic(t *testing.T) {
	a := Hash("token-a")
	if a != Hash("token-a") {
		t.Error("hash not deterministic")
	}
	if a == Hash("token-b") {
		t.Error("distinct tokens should not collide")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}
