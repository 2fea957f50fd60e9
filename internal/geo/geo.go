// Package geo annotates resolved addresses with MaxMind GeoIP data.
package geo

import (
	"fmt"
	"net"
	"net/netip"
	"strings"

	"github.com/oschwald/geoip2-golang"
)

type Location struct {
	CountryCode string
	City        string
}

func (l Location) String() string {
	switch {
	case l.CountryCode == "":
		return ""
	case l.City == "":
		return l.CountryCode
	default:
		return l.City + ", " + l.CountryCode
	}
}

// Locator looks addresses up in a GeoLite2/GeoIP2 Country or City database.
// A nil Locator returns empty locations.
type Locator struct {
	db   *geoip2.Reader
	city bool
}

func Open(path string) (*Locator, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip database %q: %w", path, err)
	}
	return &Locator{
		db:   db,
		city: strings.Contains(db.Metadata().DatabaseType, "City"),
	}, nil
}

func (l *Locator) Lookup(addr netip.Addr) (Location, error) {
	if l == nil || l.db == nil || !addr.IsValid() {
		return Location{}, nil
	}
	ip := net.IP(addr.Unmap().AsSlice())

	if l.city {
		record, err := l.db.City(ip)
		if err != nil {
			return Location{}, fmt.Errorf("geoip lookup %s: %w", addr, err)
		}
		return Location{
			CountryCode: strings.ToUpper(record.Country.IsoCode),
			City:        record.City.Names["en"],
		}, nil
	}

	record, err := l.db.Country(ip)
	if err != nil {
		return Location{}, fmt.Errorf("geoip lookup %s: %w", addr, err)
	}
	return Location{CountryCode: strings.ToUpper(record.Country.IsoCode)}, nil
}

func (l *Locator) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}
