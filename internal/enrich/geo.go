package enrich

import (
	"errors"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

var ErrNoGeoDatabase = errors.New("no geoip database loaded")

type Location struct {
	Country string
	ASN     uint
	ASOrg   string
}

// GeoIP looks addresses up in MaxMind country and ASN databases. Either
// database may be missing.
type GeoIP struct {
	countryDB *geoip2.Reader
	asnDB     *geoip2.Reader
}

func OpenGeoIP(countryPath, asnPath string) (*GeoIP, error) {
	g := &GeoIP{}
	var err error
	if countryPath != "" {
		if g.countryDB, err = geoip2.Open(countryPath); err != nil {
			return nil, fmt.Errorf("error opening country database %s: %w", countryPath, err)
		}
	}
	if asnPath != "" {
		if g.asnDB, err = geoip2.Open(asnPath); err != nil {
			g.Close()
			return nil, fmt.Errorf("error opening ASN database %s: %w", asnPath, err)
		}
	}
	if g.countryDB == nil && g.asnDB == nil {
		return nil, ErrNoGeoDatabase
	}
	return g, nil
}

func (g *GeoIP) Lookup(ip net.IP) (Location, error) {
	var location Location
	if g.countryDB != nil {
		record, err := g.countryDB.Country(ip)
		if err != nil {
			return location, fmt.Errorf("error looking up country of %s: %w", ip, err)
		}
		location.Country = record.Country.IsoCode
	}
	if g.asnDB != nil {
		record, err := g.asnDB.ASN(ip)
		if err != nil {
			return location, fmt.Errorf("error looking up ASN of %s: %w", ip, err)
		}
		location.ASN = record.AutonomousSystemNumber
		location.ASOrg = record.AutonomousSystemOrganization
	}
	return location, nil
}

func (g *GeoIP) Close() error {
	var errs []error
	if g.countryDB != nil {
		errs = append(errs, g.countryDB.Close())
	}
	if g.asnDB != nil {
		errs = append(errs, g.asnDB.Close())
	}
	return errors.Join(errs...)
}
