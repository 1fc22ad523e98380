// Package page serves the static denial page and its client script. The
// page itself carries no session data; the script pulls everything from the
// JSON endpoints after load.
package page

import (
	"bytes"
	"embed"
	"fmt"
	"net/http"
	"text/template"
)

//go:embed static
var assets embed.FS

// Renderer holds the assembled page bytes. The HTML and stylesheet are
// combined once at startup; the script stays separate so the page can load
// it from its own path.
type Renderer struct {
	html   []byte
	script []byte
}

func NewRenderer() (*Renderer, error) {
	tpl, err := template.ParseFS(assets, "static/index.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}
	css, err := assets.ReadFile("static/style.css")
	if err != nil {
		return nil, fmt.Errorf("read stylesheet: %w", err)
	}
	script, err := assets.ReadFile("static/app.js")
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, map[string]string{"CSS": string(css)}); err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return &Renderer{html: buf.Bytes(), script: script}, nil
}

func securityHeaders(h http.Header) {
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("Referrer-Policy", "no-referrer")
	h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
	h.Set("Cache-Control", "no-store")
}

// Denied serves the denial page. Always 200: the denial is the content, not
// the status.
func (p *Renderer) Denied(w http.ResponseWriter, r *http.Request) {
	securityHeaders(w.Header())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(p.html)
}

// Script serves the client script referenced by the page.
func (p *Renderer) Script(w http.ResponseWriter, r *http.Request) {
	securityHeaders(w.Header())
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(p.script)
}
