// Package upstream holds the HTTP clients for the Access organization
// endpoints and the account API. Handlers decide how each failure maps to a
// response; clients only report what happened.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"deniedpage/edge-service/internal/metrics"
)

// ErrMalformedIdentity means the identity endpoint answered with a body that
// is not JSON, even after the retry.
var ErrMalformedIdentity = errors.New("identity response is not valid JSON")

// IdentityResult carries the upstream status and the verified-JSON body.
// A non-2xx status is not an error; handlers forward it.
type IdentityResult struct {
	Status int
	Body   []byte
}

// AccessClient talks to the per-organization Access host
// (https://<org>.<access-domain>).
type AccessClient struct {
	BaseURL    string
	CookieName string
	HTTPClient *http.Client
}

func NewAccessClient(baseURL, cookieName string, timeout time.Duration) *AccessClient {
	return &AccessClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		CookieName: cookieName,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// FetchIdentity fetches the session identity document, authenticating with
// the token as a session cookie. The body is read as text and must parse as
// JSON; a parse failure is retried exactly once before giving up. Transport
// errors are never retried.
func (c *AccessClient) FetchIdentity(ctx context.Context, token string) (*IdentityResult, error) {
	return c.fetchIdentity(ctx, token, 1)
}

func (c *AccessClient) fetchIdentity(ctx context.Context, token string, retryBudget int) (*IdentityResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/cdn-cgi/access/get-identity", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cookie", c.CookieName+"="+token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues("identity").Inc()
		return nil, fmt.Errorf("fetch identity: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues("identity").Inc()
		return nil, fmt.Errorf("read identity body: %w", err)
	}

	if !json.Valid(body) {
		if retryBudget > 0 {
			metrics.IdentityRetries.Inc()
			return c.fetchIdentity(ctx, token, retryBudget-1)
		}
		metrics.UpstreamErrors.WithLabelValues("identity").Inc()
		return nil, ErrMalformedIdentity
	}

	return &IdentityResult{Status: resp.StatusCode, Body: body}, nil
}

// TraceFlags reports the WARP and Gateway bits from the trace endpoint.
type TraceFlags struct {
	IsWarp    bool
	IsGateway bool
}

// FetchTrace reads the key=value trace document. Any failure degrades to
// both flags off.
func (c *AccessClient) FetchTrace(ctx context.Context, token string) TraceFlags {
	var flags TraceFlags
	if token == "" {
		return flags
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/cdn-cgi/trace", nil)
	if err != nil {
		return flags
	}
	req.Header.Set("Cookie", c.CookieName+"="+token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues("trace").Inc()
		return flags
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return flags
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return flags
	}
	for _, line := range strings.Split(string(body), "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "warp":
			flags.IsWarp = strings.TrimSpace(value) == "on"
		case "gateway":
			flags.IsGateway = strings.TrimSpace(value) == "on"
		}
	}
	return flags
}
