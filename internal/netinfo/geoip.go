package netinfo

import (
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"

	"deniedpage/edge-service/internal/config"
)

// Location is the subset of GeoIP data used to backfill missing edge headers.
type Location struct {
	Country string
	City    string
	ASOrg   string
}

// GeoResolver wraps optional local MaxMind databases. Either reader may be
// nil; lookups degrade to whatever data is available.
type GeoResolver struct {
	city *geoip2.Reader
	asn  *geoip2.Reader
}

// NewGeoResolver opens the configured MMDB files. Returns nil when neither
// path is set, which callers treat as "headers only".
func NewGeoResolver(cfg config.GeoIPCfg) (*GeoResolver, error) {
	if cfg.CityDB == "" && cfg.ASNDB == "" {
		return nil, nil
	}
	res := &GeoResolver{}
	if cfg.CityDB != "" {
		r, err := geoip2.Open(cfg.CityDB)
		if err != nil {
			return nil, fmt.Errorf("open city database: %w", err)
		}
		res.city = r
	}
	if cfg.ASNDB != "" {
		r, err := geoip2.Open(cfg.ASNDB)
		if err != nil {
			res.Close()
			return nil, fmt.Errorf("open asn database: %w", err)
		}
		res.asn = r
	}
	return res, nil
}

// Lookup resolves an IP against the open databases. Returns nil for
// unparseable addresses or when nothing resolves.
func (g *GeoResolver) Lookup(addr string) *Location {
	ip := net.ParseIP(addr)
	if ip == nil {
		return nil
	}
	loc := &Location{}
	if g.city != nil {
		if rec, err := g.city.City(ip); err == nil {
			loc.Country = rec.Country.IsoCode
			loc.City = rec.City.Names["en"]
		}
	}
	if g.asn != nil {
		if rec, err := g.asn.ASN(ip); err == nil {
			loc.ASOrg = rec.AutonomousSystemOrganization
		}
	}
	if loc.Country == "" && loc.City == "" && loc.ASOrg == "" {
		return nil
	}
	return loc
}

func (g *GeoResolver) Close() {
	if g.city != nil {
		g.city.Close()
	}
	if g.asn != nil {
		g.asn.Close()
	}
}
