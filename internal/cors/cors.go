// Package cors computes response headers for cross-origin requests against a
// configured allow-list. Origins off the list get the configured fallback
// origin, never an echo of the hostile origin.
package cors

import (
	"net/http"
	"strings"

	"deniedpage/edge-service/internal/config"
)

const (
	allowMethods = "GET, POST, OPTIONS"
	allowHeaders = "Content-Type, cf-access-jwt-assertion, Cookie"
)

type Policy struct {
	allowed  map[string]struct{}
	suffix   string
	fallback string
}

func NewPolicy(cfg config.CORSCfg) *Policy {
	p := &Policy{
		allowed:  make(map[string]struct{}, len(cfg.AllowedOrigins)),
		suffix:   cfg.AllowedSuffix,
		fallback: cfg.FallbackOrigin,
	}
	for _, o := range cfg.AllowedOrigins {
		p.allowed[o] = struct{}{}
	}
	return p
}

// Headers computes the CORS header set for a request. Same-origin requests
// (no Origin header) get no Allow-Origin header at all.
func (p *Policy) Headers(r *http.Request) map[string]string {
	h := map[string]string{
		"Access-Control-Allow-Methods":     allowMethods,
		"Access-Control-Allow-Headers":     allowHeaders,
		"Access-Control-Allow-Credentials": "true",
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return h
	}
	if p.permits(origin) {
		h["Access-Control-Allow-Origin"] = origin
	} else {
		h["Access-Control-Allow-Origin"] = p.fallback
	}
	return h
}

func (p *Policy) permits(origin string) bool {
	if _, ok := p.allowed[origin]; ok {
		return true
	}
	return p.suffix != "" && strings.HasSuffix(origin, p.suffix)
}

// Apply writes the computed headers onto a response.
func (p *Policy) Apply(w http.ResponseWriter, r *http.Request) {
	for k, v := range p.Headers(r) {
		w.Header().Set(k, v)
	}
}
