// Package token extracts the session credential from inbound requests and
// decodes its payload segment. The upstream edge has already validated the
// signature; the unverified decode here is never used for authorization,
// only for convenience fields like device_id.
package token

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Extractor struct {
	Header string // e.g. cf-access-jwt-assertion
	Cookie string // e.g. CF_Authorization
}

// Extract pulls the session token from the dedicated header first, else from
// the named cookie. Empty string means unauthenticated; callers short-circuit
// with a 401.
func (e Extractor) Extract(r *http.Request) string {
	if tok := r.Header.Get(e.Header); tok != "" {
		return tok
	}
	cookieHeader := r.Header.Get("Cookie")
	if cookieHeader == "" {
		return ""
	}
	prefix := e.Cookie + "="
	for _, c := range strings.Split(cookieHeader, ";") {
		c = strings.TrimSpace(c)
		if strings.HasPrefix(c, prefix) {
			return c[len(prefix):]
		}
	}
	return ""
}

var unverifiedParser = jwt.NewParser()

func decodeClaims(tok string) (jwt.MapClaims, bool) {
	claims := jwt.MapClaims{}
	// ParseUnverified rejects anything that is not three dot-separated
	// segments with a base64url JSON payload.
	if _, _, err := unverifiedParser.ParseUnverified(tok, claims); err != nil {
		return nil, false
	}
	return claims, true
}

// DeviceID reads a device identifier from the token payload: a direct
// device_id claim, else the first entry of device_sessions. Returns "" for
// malformed tokens and for sessions with no enrolled device; both are valid.
func DeviceID(tok string) string {
	claims, ok := decodeClaims(tok)
	if !ok {
		return ""
	}
	if id, ok := claims["device_id"].(string); ok && id != "" {
		return id
	}
	if sessions, ok := claims["device_sessions"].([]any); ok && len(sessions) > 0 {
		if first, ok := sessions[0].(map[string]any); ok {
			if id, ok := first["device_id"].(string); ok {
				return id
			}
		}
	}
	return ""
}

// Timing returns the unvalidated iat/exp claims for display. Zero times mean
// the claim was absent or the token malformed.
func Timing(tok string) (issuedAt, expiresAt time.Time) {
	claims, ok := decodeClaims(tok)
	if !ok {
		return
	}
	if v, ok := claims["iat"].(float64); ok {
		issuedAt = time.Unix(int64(v), 0).UTC()
	}
	if v, ok := claims["exp"].(float64); ok {
		expiresAt = time.Unix(int64(v), 0).UTC()
	}
	return
}

// Hash derives the response-cache key for a token.
func Hash(tok string) string {
	sum := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(sum[:])
}
