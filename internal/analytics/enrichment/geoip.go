package enrichment

import (
	"net"

	geoip2 "github.com/oschwald/geoip2-golang"
)

// UnknownCountry is stored when an address cannot be located.
const UnknownCountry = ""

// GeoIPResolver resolves IP addresses to ISO country codes from a GeoIP2 or
// GeoLite2 country database.
type GeoIPResolver struct {
	db *geoip2.Reader
}

// NewGeoIPResolver opens the database at dbPath.
func NewGeoIPResolver(dbPath string) (*GeoIPResolver, error) {
	db, err := geoip2.Open(dbPath)
	if err != nil {
		return nil, err
	}
	return &GeoIPResolver{db: db}, nil
}

// Close closes the GeoIP database reader.
func (g *GeoIPResolver) Close() error {
	return g.db.Close()
}

// ResolveCountry returns the ISO code for ip, or UnknownCountry when the
// address cannot be located.
func (g *GeoIPResolver) ResolveCountry(ip string) string {
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.IsPrivate() || parsed.IsLoopback() {
		return UnknownCountry
	}

	record, err := g.db.Country(parsed)
	if err != nil {
		return UnknownCountry
	}
	return record.Country.IsoCode
}
