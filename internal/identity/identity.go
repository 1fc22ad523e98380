// Package identity models the upstream identity document and derives
// presentation fields from it.
package identity

import "encoding/json"

// IDPRef identifies the identity provider that authenticated the session.
type IDPRef struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Record is the subset of the upstream identity document the service acts on.
// The raw document is passed through to clients unmodified; this struct only
// drives server-side decisions. A missing DeviceID is valid: DNS-only and
// WARP-less connection modes have no enrolled device.
type Record struct {
	Email             string         `json:"email"`
	Name              string         `json:"name"`
	UserUUID          string         `json:"user_uuid"`
	Username          string         `json:"username"`
	PreferredUsername string         `json:"preferred_username"`
	Sub               string         `json:"sub"`
	Groups            []string       `json:"groups"`
	DeviceID          string         `json:"device_id"`
	IsWarp            bool           `json:"is_warp"`
	IsGateway         bool           `json:"is_gateway"`
	IDP               IDPRef         `json:"idp"`
	GatewayAccountID  string         `json:"gateway_account_id"`
	Custom            map[string]any `json:"custom"`
	SAMLAttributes    map[string]any `json:"saml_attributes"`
}

// Decode parses an identity document. Unknown fields are ignored; the raw
// JSON stays authoritative for the response body.
func Decode(raw []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ResolveUsername applies the fixed precedence: custom attribute, SAML
// attribute variants, standard claims, email fallback.
func (r *Record) ResolveUsername() string {
	if r.Custom != nil {
		if u, ok := r.Custom["username"].(string); ok && u != "" {
			return u
		}
	}
	for _, key := range []string{"username", "Username", "uid", "sAMAccountName"} {
		if u := samlValue(r.SAMLAttributes, key); u != "" {
			return u
		}
	}
	if r.PreferredUsername != "" {
		return r.PreferredUsername
	}
	if r.Username != "" {
		return r.Username
	}
	if r.Sub != "" {
		return r.Sub
	}
	return r.Email
}

// SAML attribute values arrive either as a string or as a list of strings;
// the first element wins.
func samlValue(attrs map[string]any, key string) string {
	if attrs == nil {
		return ""
	}
	switch v := attrs[key].(type) {
	case string:
		return v
	case []any:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return s
			}
		}
	}
	return ""
}

// DeviceRecord is the normalized device document. Missing or failed device
// lookups degrade to the zero value, never to a request failure.
type DeviceRecord struct {
	ID            string `json:"id,omitempty"`
	Model         string `json:"model,omitempty"`
	Name          string `json:"name,omitempty"`
	OS            string `json:"os,omitempty"`
	OSVersion     string `json:"os_version,omitempty"`
	ClientVersion string `json:"client_version,omitempty"`
	ProfileName   string `json:"profile_name,omitempty"`
	ServiceMode   string `json:"service_mode,omitempty"`
}

func (d *DeviceRecord) Empty() bool {
	return d == nil || *d == DeviceRecord{}
}
