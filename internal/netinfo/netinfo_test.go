package netinfo

import (
	"net/http/httptest"
	"testing"
	"time"
)

const (
	uaEdge    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36 Edg/126.0.2592.87"
	uaChrome  = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"
	uaFirefox = "Mozilla/5.0 (X11; Linux x86_64; rv:127.0) Gecko/20100101 Firefox/127.0"
	uaSafari  = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15"
	uaBrave   = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36 Brave/126"
	uaOpera   = "Opera/9.80 (Windows NT 6.1; WOW64) Presto/2.12.388 Version/12.18"
)

func TestDetectBrowser_Order(t *testing.T) {
	cases := []struct {
		name string
		ua   string
		want string
	}{
		{"edge beats chrome", uaEdge, "Edge 126"},
		{"brave beats chrome", uaBrave, "Brave 126"},
		{"chrome beats safari", uaChrome, "Chrome 126"},
		{"opera beats chrome", uaOpera, "Opera"},
		{"firefox", uaFirefox, "Firefox 127"},
		{"safari last", uaSafari, "Safari 17"},
		{"empty is unknown", "", "Unknown"},
		{"unrecognized is unknown", "curl/8.6.0", "Unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := detectBrowser(tc.ua); got != tc.want {
				t.Errorf("detectBrowser(%q) = %q, want %q", tc.ua, got, tc.want)
			}
		})
	}
}

func TestClassifyConnection(t *testing.T) {
	cases := []struct {
		ua    string
		asOrg string
		want  string
	}{
		{"Mozilla/5.0 (iPhone) Mobile Safari", "T-Mobile USA", "Mobile"},
		{uaChrome, "NordVPN S.A.", "VPN/Proxy"},
		{uaChrome, "Amazon Cloud Services", "Cloud/Hosting"},
		{uaChrome, "Example Corp Enterprise", "Corporate"},
		{uaChrome, "Orange S.A.", "Broadband"},
		{uaChrome, "Unknown", "Unknown"},
	}
	for _, tc := range cases {
		if got := classifyConnection(tc.ua, tc.asOrg); got != tc.want {
			t.Errorf("classifyConnection(%q) = %q, want %q", tc.asOrg, got, tc.want)
		}
	}
}

func TestEdgeLocation_Precedence(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		country string
		city    string
		want    string
	}{
		{"colo header wins", map[string]string{"CF-Colo": "mrs", "CF-Ray": "8abc123-CDG"}, "FR", "Paris", "MRS"},
		{"ray suffix", map[string]string{"CF-Ray": "8abc123-cdg"}, "GB", "London", "CDG"},
		{"city table for france", nil, "FR", "Marseille", "MRS"},
		{"country table", nil, "DE", "Unknown", "FRA"},
		{"nothing resolves", nil, "XX", "Unknown", "Unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/networkinfo", nil)
			for k, v := range tc.headers {
				r.Header.Set(k, v)
			}
			if got := edgeLocation(r, tc.country, tc.city); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDeriveTimezone(t *testing.T) {
	cases := []struct {
		country string
		region  string
		want    string
	}{
		{"FR", "", "Europe/Paris"},
		{"US", "California", "America/Los_Angeles"},
		{"US", "Texas", "America/Chicago"},
		{"US", "Nowhere", "America/New_York"},
		{"CA", "British Columbia", "America/Vancouver"},
		{"AU", "Victoria", "Australia/Melbourne"},
		{"BR", "Amazonas", "America/Manaus"},
		{"MX", "Sonora", "America/Hermosillo"},
		{"XX", "", "Unknown"},
	}
	for _, tc := range cases {
		if got := DeriveTimezone(tc.country, tc.region); got != tc.want {
			t.Errorf("DeriveTimezone(%q, %q) = %q, want %q", tc.country, tc.region, got, tc.want)
		}
	}
}

func TestDerive_HeadersAndDegradation(t *testing.T) {
	d := NewDeriver(nil)
	d.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	r := httptest.NewRequest("GET", "/api/networkinfo", nil)
	r.Header.Set("CF-Connecting-IP", "203.0.113.7")
	r.Header.Set("CF-IPCountry", "FR")
	r.Header.Set("CF-IPCity", "Paris")
	r.Header.Set("CF-Region", "Ile-de-France")
	r.Header.Set("CF-ASOrganization", "Orange S.A.")
	r.Header.Set("CF-Ray", "8abc123-CDG")
	r.Header.Set("User-Agent", uaFirefox)

	info := d.Derive(r)
	if info.IP != "203.0.113.7" || info.Country != "FR" || info.City != "Paris" {
		t.Errorf("unexpected geo fields: %+v", info)
	}
	if info.Browser != "Firefox 127" || info.EdgeLocation != "CDG" || info.Timezone != "Europe/Paris" {
		t.Errorf("unexpected derived fields: %+v", info)
	}
	if info.Timestamp != "2025-06-01T12:00:00Z" {
		t.Errorf("timestamp = %q", info.Timestamp)
	}

	// Bare request degrades every header-backed field to Unknown.
	bare := d.Derive(httptest.NewRequest("GET", "/api/networkinfo", nil))
	for name, v := range map[string]string{
		"country": bare.Country, "city": bare.City, "region": bare.Region,
		"isp": bare.ISP, "browser": bare.Browser, "edge": bare.EdgeLocation,
		"timezone": bare.Timezone, "connection": bare.ConnectionType,
	} {
		if v != "Unknown" {
			t.Errorf("%s = %q, want Unknown", name, v)
		}
	}
}
