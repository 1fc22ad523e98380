// Package netinfo derives client network facts from inbound request headers.
// It makes no outbound calls; every field degrades to "Unknown" when its
// source header is absent. An optional local GeoIP database fills geo gaps
// for requests that did not pass through the edge.
package netinfo

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"deniedpage/edge-service/internal/httputil"
)

const unknown = "Unknown"

// Info is the derived network document returned by /api/networkinfo.
type Info struct {
	IP             string `json:"ip"`
	Country        string `json:"country"`
	City           string `json:"city"`
	Region         string `json:"region"`
	ISP            string `json:"isp"`
	ConnectionType string `json:"connectionType"`
	Browser        string `json:"browser"`
	EdgeLocation   string `json:"edgeLocation"`
	Timezone       string `json:"timezone"`
	Timestamp      string `json:"timestamp"`
}

// Deriver computes Info from headers, with an optional GeoIP fallback.
type Deriver struct {
	geo *GeoResolver // nil when no MMDB is configured
	now func() time.Time
}

func NewDeriver(geo *GeoResolver) *Deriver {
	return &Deriver{geo: geo, now: time.Now}
}

func headerOr(r *http.Request, name, fallback string) string {
	if v := r.Header.Get(name); v != "" {
		return v
	}
	return fallback
}

// Derive is a pure function of the request (plus the optional local GeoIP
// lookup); it cannot fail.
func (d *Deriver) Derive(r *http.Request) Info {
	ip := httputil.ClientIP(r)
	if ip == "" {
		ip = unknown
	}
	country := headerOr(r, "CF-IPCountry", unknown)
	city := headerOr(r, "CF-IPCity", unknown)
	region := headerOr(r, "CF-Region", unknown)
	asOrg := headerOr(r, "CF-ASOrganization", unknown)

	if d.geo != nil && ip != unknown {
		if country == unknown || city == unknown || asOrg == unknown {
			if loc := d.geo.Lookup(ip); loc != nil {
				if country == unknown && loc.Country != "" {
					country = loc.Country
				}
				if city == unknown && loc.City != "" {
					city = loc.City
				}
				if asOrg == unknown && loc.ASOrg != "" {
					asOrg = loc.ASOrg
				}
			}
		}
	}

	ua := r.Header.Get("User-Agent")
	return Info{
		IP:             ip,
		Country:        country,
		City:           city,
		Region:         region,
		ISP:            asOrg,
		ConnectionType: classifyConnection(ua, asOrg),
		Browser:        detectBrowser(ua),
		EdgeLocation:   edgeLocation(r, country, city),
		Timezone:       DeriveTimezone(country, region),
		Timestamp:      d.now().UTC().Format(time.RFC3339),
	}
}

var versionRe = map[string]*regexp.Regexp{
	"Brave":   regexp.MustCompile(`Brave/([0-9.]+)`),
	"Edge":    regexp.MustCompile(`Edg/([0-9.]+)`),
	"Chrome":  regexp.MustCompile(`Chrome/([0-9.]+)`),
	"Firefox": regexp.MustCompile(`Firefox/([0-9.]+)`),
	"Safari":  regexp.MustCompile(`Version/([0-9.]+)`),
}

func browserWithVersion(name, ua string) string {
	if re, ok := versionRe[name]; ok {
		if m := re.FindStringSubmatch(ua); m != nil {
			major, _, _ := strings.Cut(m[1], ".")
			return name + " " + major
		}
	}
	return name
}

// detectBrowser matches vendor tokens in a fixed order; user-agent strings
// are multiply-matching, so Brave and Edge must be checked before Chrome and
// Safari last.
func detectBrowser(ua string) string {
	switch {
	case ua == "":
		return unknown
	case strings.Contains(ua, "Brave"):
		return browserWithVersion("Brave", ua)
	case strings.Contains(ua, "Edg"):
		return browserWithVersion("Edge", ua)
	case strings.Contains(ua, "Chrome"):
		return browserWithVersion("Chrome", ua)
	case strings.Contains(ua, "Firefox"):
		return browserWithVersion("Firefox", ua)
	case strings.Contains(ua, "Opera") || strings.Contains(ua, "OPR"):
		return "Opera"
	case strings.Contains(ua, "Safari"):
		return browserWithVersion("Safari", ua)
	default:
		return unknown
	}
}

// classifyConnection is a coarse bucket from UA and AS-organization text.
func classifyConnection(ua, asOrg string) string {
	asLower := strings.ToLower(asOrg)
	switch {
	case strings.Contains(ua, "Mobile"):
		return "Mobile"
	case strings.Contains(asLower, "vpn") || strings.Contains(asLower, "proxy"):
		return "VPN/Proxy"
	case strings.Contains(asLower, "cloud") || strings.Contains(asLower, "hosting"):
		return "Cloud/Hosting"
	case strings.Contains(asLower, "corp") || strings.Contains(asLower, "enterprise"):
		return "Corporate"
	case asOrg == unknown:
		return unknown
	default:
		return "Broadband"
	}
}

// Static country/city guesses for requests whose ray header is missing.
var cityColo = map[string]string{
	"Paris":     "CDG",
	"Marseille": "MRS",
	"Lyon":      "LYS",
}

var countryColo = map[string]string{
	"FR": "CDG",
	"GB": "LHR",
	"UK": "LHR",
	"DE": "FRA",
	"NL": "AMS",
	"US": "LAX",
}

// edgeLocation precedence: platform colo header, ray-id suffix, static
// country/city guess, Unknown.
func edgeLocation(r *http.Request, country, city string) string {
	if colo := r.Header.Get("CF-Colo"); colo != "" {
		return strings.ToUpper(colo)
	}
	if ray := r.Header.Get("CF-Ray"); strings.Contains(ray, "-") {
		parts := strings.Split(ray, "-")
		if suffix := parts[len(parts)-1]; suffix != "" {
			return strings.ToUpper(suffix)
		}
	}
	if colo, ok := cityColo[city]; ok && country == "FR" {
		return colo
	}
	if colo, ok := countryColo[country]; ok {
		return colo
	}
	return unknown
}
