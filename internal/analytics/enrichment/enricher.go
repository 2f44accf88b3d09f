// Package enrichment derives device, traffic source and country attributes
// from the request metadata carried by a click.
package enrichment

import (
	"clickpipe/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// ProviderSet is enrichment providers.
var ProviderSet = wire.NewSet(NewEnricher)

// CountryResolver locates an IP address.
type CountryResolver interface {
	ResolveCountry(ip string) string
}

// Attributes are the derived columns of a stored click.
type Attributes struct {
	DeviceType    string
	TrafficSource string
	CountryCode   string
}

// Enricher combines the individual detectors. Country lookup is optional.
type Enricher struct {
	devices  *DeviceDetector
	referers *RefererClassifier
	geo      CountryResolver
}

// NewEnricher opens the GeoIP database when one is configured. A database
// that cannot be opened disables country lookup instead of failing startup.
func NewEnricher(c *conf.Worker, logger log.Logger) (*Enricher, func(), error) {
	helper := log.NewHelper(log.With(logger, "module", "enrichment"))
	e := &Enricher{
		devices:  NewDeviceDetector(),
		referers: NewRefererClassifier(),
	}
	cleanup := func() {}

	if c.GeoIPPath != "" {
		resolver, err := NewGeoIPResolver(c.GeoIPPath)
		if err != nil {
			helper.Warnf("geoip database %s unavailable, country lookup disabled: %v", c.GeoIPPath, err)
		} else {
			e.geo = resolver
			cleanup = func() {
				if err := resolver.Close(); err != nil {
					helper.Error(err)
				}
			}
		}
	}
	return e, cleanup, nil
}

// NewStaticEnricher builds an Enricher around an arbitrary country resolver.
func NewStaticEnricher(geo CountryResolver) *Enricher {
	return &Enricher{
		devices:  NewDeviceDetector(),
		referers: NewRefererClassifier(),
		geo:      geo,
	}
}

// Enrich never fails; unknown inputs map to the unknown value of each attribute.
func (e *Enricher) Enrich(clientAddress, userAgent, referrer string) Attributes {
	attrs := Attributes{
		DeviceType:    e.devices.DetectDevice(userAgent),
		TrafficSource: e.referers.ClassifySource(referrer),
		CountryCode:   UnknownCountry,
	}
	if e.geo != nil {
		attrs.CountryCode = e.geo.ResolveCountry(clientAddress)
	}
	return attrs
}
