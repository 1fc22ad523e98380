package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"deniedpage/edge-service/internal/metrics"
)

// APIClient talks to the account-scoped management API with a bearer token.
type APIClient struct {
	BaseURL    string
	AccountID  string
	Bearer     string
	HTTPClient *http.Client
	now        func() time.Time
}

func NewAPIClient(baseURL, accountID, bearer string, timeout time.Duration) *APIClient {
	return &APIClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		AccountID:  accountID,
		Bearer:     bearer,
		HTTPClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

func (c *APIClient) get(ctx context.Context, url string, extraHeaders map[string]string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Bearer)
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

// FetchDevice returns the raw device document. The device lives under the
// gateway account from the identity, not necessarily the configured account.
func (c *APIClient) FetchDevice(ctx context.Context, gatewayAccountID, deviceID string) ([]byte, error) {
	url := fmt.Sprintf("%s/accounts/%s/devices/%s", c.BaseURL, gatewayAccountID, deviceID)
	body, status, err := c.get(ctx, url, nil)
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues("device").Inc()
		return nil, fmt.Errorf("fetch device: %w", err)
	}
	if status != http.StatusOK {
		metrics.UpstreamErrors.WithLabelValues("device").Inc()
		return nil, fmt.Errorf("device endpoint returned %d", status)
	}
	return body, nil
}

// FetchPosture returns the raw posture-check document. Every layer between
// here and the evaluation service caches aggressively, so the request
// carries no-store headers and a cache-busting query parameter.
func (c *APIClient) FetchPosture(ctx context.Context, gatewayAccountID, deviceID string) ([]byte, error) {
	url := fmt.Sprintf("%s/accounts/%s/devices/%s/posture/check?enrich=true&_t=%d",
		c.BaseURL, gatewayAccountID, deviceID, c.now().UnixMilli())
	body, status, err := c.get(ctx, url, map[string]string{
		"Cache-Control": "no-cache, no-store, must-revalidate",
		"Pragma":        "no-cache",
		"Expires":       "0",
	})
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues("posture").Inc()
		return nil, fmt.Errorf("fetch posture: %w", err)
	}
	if status != http.StatusOK {
		metrics.UpstreamErrors.WithLabelValues("posture").Inc()
		return nil, fmt.Errorf("posture endpoint returned %d", status)
	}
	return body, nil
}

// LoginDimensions is one failed-login event from the analytics store.
type LoginDimensions struct {
	Datetime          string `json:"datetime"`
	IsSuccessfulLogin int    `json:"isSuccessfulLogin"`
	HasWarpEnabled    int    `json:"hasWarpEnabled"`
	HasGatewayEnabled int    `json:"hasGatewayEnabled"`
	IPAddress         string `json:"ipAddress"`
	UserUUID          string `json:"userUuid"`
	IdentityProvider  string `json:"identityProvider"`
	Country           string `json:"country"`
	DeviceID          string `json:"deviceId"`
	MTLSStatus        string `json:"mtlsStatus"`
	ApprovingPolicyID string `json:"approvingPolicyId"`
	AppID             string `json:"appId"`
}

// LoginEvent is an analytics row plus the resolved application name.
type LoginEvent struct {
	Dimensions      LoginDimensions `json:"dimensions"`
	ApplicationName string          `json:"applicationName,omitempty"`
}

// All filter values travel as bound variables, never spliced into the query
// text.
const loginEventsQuery = `query ($accountTag: string!, $start: Time!, $end: Time!, $userUuid: string!, $limit: uint64!) {
  viewer {
    accounts(filter: {accountTag: $accountTag}) {
      accessLoginRequestsAdaptiveGroups(
        limit: $limit,
        filter: {
          datetime_geq: $start,
          datetime_leq: $end,
          userUuid: $userUuid,
          isSuccessfulLogin: 0
        },
        orderBy: [datetime_DESC]
      ) {
        dimensions {
          datetime
          isSuccessfulLogin
          hasWarpEnabled
          hasGatewayEnabled
          ipAddress
          userUuid
          identityProvider
          country
          deviceId
          mtlsStatus
          approvingPolicyId
          appId
        }
      }
    }
  }
}`

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlResponse struct {
	Data struct {
		Viewer struct {
			Accounts []struct {
				Groups []LoginEvent `json:"accessLoginRequestsAdaptiveGroups"`
			} `json:"accounts"`
		} `json:"viewer"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// QueryError is a failed analytics query. InBand carries the messages from
// the response's errors list when the store rejected the query itself;
// Status is set when the endpoint answered with a non-2xx status.
type QueryError struct {
	Status int
	InBand []string
	msg    string
}

func (e *QueryError) Error() string { return e.msg }

// QueryLoginEvents returns up to limit failed logins for the user within the
// trailing window. Both the HTTP status and the in-band errors list count as
// failures.
func (c *APIClient) QueryLoginEvents(ctx context.Context, userUUID string, hoursBack, limit int) ([]LoginEvent, error) {
	end := c.now().UTC()
	start := end.Add(-time.Duration(hoursBack) * time.Hour)

	payload, err := json.Marshal(graphqlRequest{
		Query: loginEventsQuery,
		Variables: map[string]any{
			"accountTag": c.AccountID,
			"start":      start.Format(time.RFC3339),
			"end":        end.Format(time.RFC3339),
			"userUuid":   userUUID,
			"limit":      limit,
		},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/graphql", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Bearer)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues("graphql").Inc()
		return nil, fmt.Errorf("query login events: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues("graphql").Inc()
		return nil, fmt.Errorf("read analytics body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		metrics.UpstreamErrors.WithLabelValues("graphql").Inc()
		return nil, &QueryError{
			Status: resp.StatusCode,
			msg:    fmt.Sprintf("analytics endpoint returned %d: %s", resp.StatusCode, truncate(body, 200)),
		}
	}

	var parsed graphqlResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		metrics.UpstreamErrors.WithLabelValues("graphql").Inc()
		return nil, fmt.Errorf("decode analytics body: %w", err)
	}
	if len(parsed.Errors) > 0 {
		metrics.UpstreamErrors.WithLabelValues("graphql").Inc()
		msgs := make([]string, len(parsed.Errors))
		for i, e := range parsed.Errors {
			msgs[i] = e.Message
		}
		return nil, &QueryError{Status: resp.StatusCode, InBand: msgs, msg: "analytics query failed: " + msgs[0]}
	}

	if len(parsed.Data.Viewer.Accounts) == 0 {
		return []LoginEvent{}, nil
	}
	events := parsed.Data.Viewer.Accounts[0].Groups
	if events == nil {
		events = []LoginEvent{}
	}
	return events, nil
}

// FetchAppName resolves an application id to its display name. Any failure
// yields the "Unknown App" placeholder; the history listing renders either
// way.
func (c *APIClient) FetchAppName(ctx context.Context, appID string) string {
	url := fmt.Sprintf("%s/accounts/%s/access/apps/%s", c.BaseURL, c.AccountID, appID)
	body, status, err := c.get(ctx, url, nil)
	if err != nil || status != http.StatusOK {
		metrics.UpstreamErrors.WithLabelValues("apps").Inc()
		return "Unknown App"
	}
	var parsed struct {
		Result struct {
			Name string `json:"name"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.Result.Name == "" {
		return "Unknown App"
	}
	return parsed.Result.Name
}

// IDPDetails is the public description of an identity provider.
type IDPDetails struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type idpRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// FetchIDP resolves a provider id, first by direct lookup, then by listing
// all providers and scanning. Exhausted fallbacks yield a placeholder with
// the requested id, never an error.
func (c *APIClient) FetchIDP(ctx context.Context, idpID string) IDPDetails {
	directURL := fmt.Sprintf("%s/accounts/%s/access/identity_providers/%s", c.BaseURL, c.AccountID, idpID)
	if body, status, err := c.get(ctx, directURL, nil); err == nil && status == http.StatusOK {
		var parsed struct {
			Result idpRecord `json:"result"`
		}
		if err := json.Unmarshal(body, &parsed); err == nil && parsed.Result.ID != "" {
			return IDPDetails(parsed.Result)
		}
	}

	listURL := fmt.Sprintf("%s/accounts/%s/access/identity_providers", c.BaseURL, c.AccountID)
	if body, status, err := c.get(ctx, listURL, nil); err == nil && status == http.StatusOK {
		var parsed struct {
			Result []idpRecord `json:"result"`
		}
		if err := json.Unmarshal(body, &parsed); err == nil {
			for _, p := range parsed.Result {
				if p.ID == idpID {
					return IDPDetails(p)
				}
			}
		}
	}

	metrics.UpstreamErrors.WithLabelValues("idp").Inc()
	return IDPDetails{ID: idpID, Name: "Unknown Provider", Type: "Unknown"}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
