package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type ServerCfg struct {
	Listen         string `yaml:"listen"`
	ReadTimeoutMs  int    `yaml:"read_timeout_ms"`
	WriteTimeoutMs int    `yaml:"write_timeout_ms"`
}

type OrgCfg struct {
	Name        string `yaml:"name"`         // builds the identity endpoint hostname
	AccountID   string `yaml:"account_id"`   // account scope for device/posture/history calls
	TargetGroup string `yaml:"target_group"` // UI highlighting only
}

type UpstreamCfg struct {
	APIBaseURL   string `yaml:"api_base_url"`  // REST + GraphQL API root
	AccessDomain string `yaml:"access_domain"` // suffix for <org>.<access_domain>
	BearerToken  string `yaml:"bearer_token"`  // overridable via DENIEDPAGE_BEARER_TOKEN
	TimeoutMs    int    `yaml:"timeout_ms"`
}

type AuthCfg struct {
	Header string `yaml:"header"` // JWT assertion header
	Cookie string `yaml:"cookie"` // session cookie name
}

type CORSCfg struct {
	AllowedOrigins []string `yaml:"allowed_origins"` // exact-match allow-list
	AllowedSuffix  string   `yaml:"allowed_suffix"`  // e.g. ".macharpe.com"
	FallbackOrigin string   `yaml:"fallback_origin"` // used for origins off the list
}

type HistoryCfg struct {
	HoursBack int `yaml:"hours_back"`
	Limit     int `yaml:"limit"`
}

type CacheCfg struct {
	Capacity int `yaml:"capacity"`
	TTLSec   int `yaml:"ttl_sec"`
}

type GeoIPCfg struct {
	CityDB string `yaml:"city_db"` // optional MMDB fallback when edge geo headers are absent
	ASNDB  string `yaml:"asn_db"`
}

type LoggingCfg struct {
	Level string `yaml:"level"` // info|debug
}

type Config struct {
	Server   ServerCfg   `yaml:"server"`
	Org      OrgCfg      `yaml:"organization"`
	Upstream UpstreamCfg `yaml:"upstream"`
	Auth     AuthCfg     `yaml:"auth"`
	CORS     CORSCfg     `yaml:"cors"`
	History  HistoryCfg  `yaml:"history"`
	Cache    CacheCfg    `yaml:"cache"`
	GeoIP    GeoIPCfg    `yaml:"geoip"`
	Logging  LoggingCfg  `yaml:"logging"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	// defaults
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Server.ReadTimeoutMs == 0 {
		cfg.Server.ReadTimeoutMs = 5000
	}
	if cfg.Server.WriteTimeoutMs == 0 {
		cfg.Server.WriteTimeoutMs = 30000
	}
	if cfg.Upstream.APIBaseURL == "" {
		cfg.Upstream.APIBaseURL = "https://api.cloudflare.com/client/v4"
	}
	if cfg.Upstream.AccessDomain == "" {
		cfg.Upstream.AccessDomain = "cloudflareaccess.com"
	}
	if cfg.Upstream.TimeoutMs == 0 {
		cfg.Upstream.TimeoutMs = 10000
	}
	if tok := os.Getenv("DENIEDPAGE_BEARER_TOKEN"); tok != "" {
		cfg.Upstream.BearerToken = tok
	}
	if cfg.Auth.Header == "" {
		cfg.Auth.Header = "cf-access-jwt-assertion"
	}
	if cfg.Auth.Cookie == "" {
		cfg.Auth.Cookie = "CF_Authorization"
	}
	if cfg.History.HoursBack == 0 {
		cfg.History.HoursBack = 2
	}
	if cfg.History.Limit == 0 {
		cfg.History.Limit = 5
	}
	if cfg.Cache.Capacity == 0 {
		cfg.Cache.Capacity = 10_000
	}
	if cfg.Cache.TTLSec == 0 {
		cfg.Cache.TTLSec = 30
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	return &cfg, nil
}

func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.Upstream.TimeoutMs) * time.Millisecond
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSec) * time.Second
}

// IdentityBaseURL is the per-organization Access host, e.g.
// https://acme.cloudflareaccess.com.
func (c *Config) IdentityBaseURL() string {
	return fmt.Sprintf("https://%s.%s", c.Org.Name, c.Upstream.AccessDomain)
}

func (c *Config) Validate() error {
	if c.Org.Name == "" {
		return errors.New("organization.name required")
	}
	if c.Org.AccountID == "" {
		return errors.New("organization.account_id required")
	}
	if c.Upstream.BearerToken == "" {
		return errors.New("upstream.bearer_token required (or DENIEDPAGE_BEARER_TOKEN)")
	}
	if _, err := url.Parse(c.Upstream.APIBaseURL); err != nil {
		return fmt.Errorf("invalid upstream.api_base_url: %w", err)
	}
	if !strings.HasPrefix(c.Upstream.APIBaseURL, "http://") && !strings.HasPrefix(c.Upstream.APIBaseURL, "https://") {
		return errors.New("upstream.api_base_url must be an absolute http(s) URL")
	}
	if c.CORS.FallbackOrigin == "" {
		return errors.New("cors.fallback_origin required")
	}
	if c.History.HoursBack < 0 || c.History.HoursBack > 168 {
		return errors.New("history.hours_back must be in [0,168]")
	}
	if c.History.Limit <= 0 || c.History.Limit > 100 {
		return errors.New("history.limit must be in (0,100]")
	}
	if c.Cache.TTLSec < 0 || c.Cache.TTLSec > 300 {
		return errors.New("cache.ttl_sec must be in [0,300]")
	}
	switch c.Logging.Level {
	case "info", "debug":
	default:
		return errors.New("logging.level must be 'info' or 'debug'")
	}
	return nil
}
