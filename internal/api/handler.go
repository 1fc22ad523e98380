// Package api implements the JSON endpoints behind the denial page and the
// router that fronts them.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"deniedpage/edge-service/internal/cache"
	"deniedpage/edge-service/internal/config"
	"deniedpage/edge-service/internal/cors"
	"deniedpage/edge-service/internal/httputil"
	"deniedpage/edge-service/internal/identity"
	"deniedpage/edge-service/internal/metrics"
	"deniedpage/edge-service/internal/netinfo"
	"deniedpage/edge-service/internal/posture"
	"deniedpage/edge-service/internal/token"
	"deniedpage/edge-service/internal/upstream"
)

type errorBody struct {
	Error string `json:"error"`
}

// errorDetails is an errorBody with the upstream cause attached, for
// failures where the page shows the reason rather than a generic message.
type errorDetails struct {
	Error   string `json:"error"`
	Details any    `json:"details"`
}

// Handler holds the wired dependencies for every API endpoint.
type Handler struct {
	Cfg    *config.Config
	CORS   *cors.Policy
	Tokens token.Extractor
	Access *upstream.AccessClient
	API    *upstream.APIClient
	Cache  *cache.ResponseCache
	Net    *netinfo.Deriver

	now func() time.Time
}

func NewHandler(cfg *config.Config, policy *cors.Policy, access *upstream.AccessClient, apiClient *upstream.APIClient, respCache *cache.ResponseCache, net *netinfo.Deriver) *Handler {
	return &Handler{
		Cfg:    cfg,
		CORS:   policy,
		Tokens: token.Extractor{Header: cfg.Auth.Header, Cookie: cfg.Auth.Cookie},
		Access: access,
		API:    apiClient,
		Cache:  respCache,
		Net:    net,
		now:    time.Now,
	}
}

type sessionTiming struct {
	IssuedAt  string `json:"issuedAt,omitempty"`
	ExpiresAt string `json:"expiresAt,omitempty"`
}

// userDetails is the combined document served by /api/userdetails. The
// identity document passes through raw; everything else is derived here so
// every client renders the same answer.
type userDetails struct {
	Identity json.RawMessage        `json:"identity"`
	Username string                 `json:"username,omitempty"`
	OS       string                 `json:"os"`
	Device   *identity.DeviceRecord `json:"device"`
	Posture  []posture.Check        `json:"posture"`
	WarpMode identity.WarpModeInfo  `json:"warpMode"`
	Session  *sessionTiming         `json:"session,omitempty"`
}

// UserDetails serves the combined identity/device/posture document.
func (h *Handler) UserDetails(w http.ResponseWriter, r *http.Request) {
	h.CORS.Apply(w, r)

	tok := h.Tokens.Extract(r)
	if tok == "" {
		httputil.WriteJSON(w, http.StatusUnauthorized, errorBody{Error: "Unauthorized - JWT assertion missing"})
		return
	}

	status, body, cacheStatus, err := h.combined(r.Context(), tok)
	if err != nil {
		httputil.GetLogger(r.Context()).Error().Err(err).Msg("user details assembly failed")
		httputil.WriteJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal Server Error: " + err.Error()})
		return
	}

	w.Header().Set("X-Cache-Status", cacheStatus)
	w.Header().Set("Content-Type", "application/json")
	if status == http.StatusOK {
		w.Header().Set("Cache-Control", "private, max-age=30")
	}
	w.WriteHeader(status)
	w.Write(body)
}

// combined returns the response status and body for a token, consulting the
// cache first. Only fully assembled 200 responses are cached; identity
// failures pass through uncached so a recovering session is retried.
func (h *Handler) combined(ctx context.Context, tok string) (status int, body []byte, cacheStatus string, err error) {
	key := token.Hash(tok)
	if cached, ok := h.Cache.Get(key, h.now()); ok {
		metrics.CacheHits.Inc()
		return http.StatusOK, cached, "hit", nil
	}
	metrics.CacheMisses.Inc()

	res, err := h.Access.FetchIdentity(ctx, tok)
	if err != nil {
		return 0, nil, "miss", err
	}
	if res.Status < 200 || res.Status > 299 {
		// Session problems are the upstream's verdict; forward it as-is.
		return res.Status, res.Body, "miss", nil
	}

	details, err := h.assemble(ctx, tok, res.Body)
	if err != nil {
		return 0, nil, "miss", err
	}
	body, err = json.Marshal(details)
	if err != nil {
		return 0, nil, "miss", err
	}

	stored := make([]byte, len(body))
	copy(stored, body)
	go h.Cache.Put(key, stored)

	return http.StatusOK, body, "miss", nil
}

// assemble builds the combined document from a verified identity body. The
// device and posture lookups degrade to empty on any failure and run
// concurrently; only the identity itself is load-bearing.
func (h *Handler) assemble(ctx context.Context, tok string, identityBody []byte) (*userDetails, error) {
	rec, err := identity.Decode(identityBody)
	if err != nil {
		return nil, err
	}

	deviceID := token.DeviceID(tok)
	if deviceID == "" {
		deviceID = rec.DeviceID
	}

	dev := &identity.DeviceRecord{}
	checks := []posture.Check{}
	if deviceID != "" && rec.GatewayAccountID != "" {
		var wg sync.WaitGroup
		var deviceRaw, postureRaw []byte
		wg.Add(2)
		go func() {
			defer wg.Done()
			deviceRaw, _ = h.API.FetchDevice(ctx, rec.GatewayAccountID, deviceID)
		}()
		go func() {
			defer wg.Done()
			postureRaw, _ = h.API.FetchPosture(ctx, rec.GatewayAccountID, deviceID)
		}()
		wg.Wait()

		if deviceRaw != nil {
			var envelope struct {
				Result identity.DeviceRecord `json:"result"`
			}
			if err := json.Unmarshal(deviceRaw, &envelope); err == nil {
				dev = &envelope.Result
			}
		}
		checks = posture.Normalize(postureRaw)
	}

	// Identity documents from DoH-only sessions carry neither flag even when
	// the tunnel is up; the trace endpoint is authoritative there.
	if !rec.IsWarp && !rec.IsGateway {
		flags := h.Access.FetchTrace(ctx, tok)
		rec.IsWarp = flags.IsWarp
		rec.IsGateway = flags.IsGateway
	}

	os := posture.DetectOS(dev)
	details := &userDetails{
		Identity: identityBody,
		Username: rec.ResolveUsername(),
		OS:       os,
		Device:   dev,
		Posture:  posture.FilterRelevant(checks, os),
		WarpMode: identity.ClassifyWarpMode(rec, dev),
	}

	if iat, exp := token.Timing(tok); !iat.IsZero() || !exp.IsZero() {
		session := &sessionTiming{}
		if !iat.IsZero() {
			session.IssuedAt = iat.Format(time.RFC3339)
		}
		if !exp.IsZero() {
			session.ExpiresAt = exp.Format(time.RFC3339)
		}
		details.Session = session
	}
	return details, nil
}

// History serves the recent failed-login listing. The combined document is
// assembled in-process rather than via a loopback request.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	h.CORS.Apply(w, r)

	tok := h.Tokens.Extract(r)
	if tok == "" {
		httputil.WriteJSON(w, http.StatusUnauthorized, errorBody{Error: "Unauthorized - JWT assertion missing"})
		return
	}

	status, body, _, err := h.combined(r.Context(), tok)
	if err != nil || status != http.StatusOK {
		httputil.GetLogger(r.Context()).Error().Err(err).Int("status", status).Msg("history: user details unavailable")
		httputil.WriteJSON(w, http.StatusInternalServerError, errorBody{Error: "Failed to get user details"})
		return
	}

	var parsed struct {
		Identity struct {
			UserUUID string `json:"user_uuid"`
		} `json:"identity"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.Identity.UserUUID == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, errorBody{Error: "user_uuid not found"})
		return
	}

	events, err := h.API.QueryLoginEvents(r.Context(), parsed.Identity.UserUUID, h.Cfg.History.HoursBack, h.Cfg.History.Limit)
	if err != nil {
		httputil.GetLogger(r.Context()).Error().Err(err).Msg("login history query failed")
		resp := errorDetails{Error: "Failed to fetch history data", Details: err.Error()}
		var qerr *upstream.QueryError
		if errors.As(err, &qerr) && len(qerr.InBand) > 0 {
			resp.Details = qerr.InBand
		}
		httputil.WriteJSON(w, http.StatusInternalServerError, resp)
		return
	}

	// Resolve application names concurrently; each lookup degrades to a
	// placeholder on its own.
	var wg sync.WaitGroup
	for i := range events {
		if events[i].Dimensions.AppID == "" {
			events[i].ApplicationName = "No AppId"
			continue
		}
		wg.Add(1)
		go func(ev *upstream.LoginEvent) {
			defer wg.Done()
			ev.ApplicationName = h.API.FetchAppName(r.Context(), ev.Dimensions.AppID)
		}(&events[i])
	}
	wg.Wait()

	w.Header().Set("Cache-Control", "private, max-age=30")
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"loginHistory": events})
}

// NetworkInfo serves the header-derived network document. It cannot fail.
func (h *Handler) NetworkInfo(w http.ResponseWriter, r *http.Request) {
	h.CORS.Apply(w, r)
	httputil.WriteJSON(w, http.StatusOK, h.Net.Derive(r))
}

// Env exposes the whitelisted configuration values the page needs. Nothing
// here is per-session, so it is publicly cacheable.
func (h *Handler) Env(w http.ResponseWriter, r *http.Request) {
	h.CORS.Apply(w, r)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"ACCOUNT_ID":         h.Cfg.Org.AccountID,
		"ORGANIZATION_NAME":  h.Cfg.Org.Name,
		"TARGET_GROUP":       h.Cfg.Org.TargetGroup,
		"HISTORY_HOURS_BACK": strconv.Itoa(h.Cfg.History.HoursBack),
	})
}

// IdpDetails resolves an identity provider id to its display name and type.
func (h *Handler) IdpDetails(w http.ResponseWriter, r *http.Request) {
	h.CORS.Apply(w, r)

	idpID := r.URL.Query().Get("id")
	if idpID == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, errorBody{Error: "IDP ID is required"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.API.FetchIDP(r.Context(), idpID))
}
