package api

import (
	"net/http"
	"strconv"
	"time"

	"deniedpage/edge-service/internal/metrics"
	"deniedpage/edge-service/internal/page"
)

// Router dispatches on exact paths. Anything that is not a known API path
// gets the denial page with a 200; the service never answers 404.
type Router struct {
	h    *Handler
	page *page.Renderer
}

func NewRouter(h *Handler, p *page.Renderer) *Router {
	return &Router{h: h, page: p}
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/userdetails":
		rt.serve(w, r, "userdetails", rt.h.UserDetails)
	case "/api/history":
		rt.serve(w, r, "history", rt.h.History)
	case "/api/networkinfo":
		rt.serve(w, r, "networkinfo", rt.h.NetworkInfo)
	case "/api/env":
		rt.serve(w, r, "env", rt.h.Env)
	case "/api/idpdetails":
		rt.serve(w, r, "idpdetails", rt.h.IdpDetails)
	case "/api/js":
		rt.serve(w, r, "js", rt.page.Script)
	default:
		rt.serve(w, r, "page", rt.page.Denied)
	}
}

// serve wraps an endpoint with preflight handling and instrumentation.
func (rt *Router) serve(w http.ResponseWriter, r *http.Request, endpoint string, fn http.HandlerFunc) {
	if r.Method == http.MethodOptions {
		rt.h.CORS.Apply(w, r)
		w.WriteHeader(http.StatusNoContent)
		metrics.Requests.WithLabelValues(endpoint, "204").Inc()
		return
	}

	start := time.Now()
	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	fn(sw, r)
	metrics.RequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	metrics.Requests.WithLabelValues(endpoint, strconv.Itoa(sw.status)).Inc()
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (s *statusWriter) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
