package geo

import (
	"context"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// GeoIPLocator resolves countries from a local MaxMind database.
type GeoIPLocator struct {
	reader *geoip2.Reader
}

func OpenGeoIP(path string) (*GeoIPLocator, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open GeoIP database: %w", err)
	}
	return &GeoIPLocator{reader: reader}, nil
}

func (l *GeoIPLocator) Lookup(_ context.Context, ip string) (string, error) {
	addr := net.ParseIP(ip)
	if addr == nil {
		return "", fmt.Errorf("invalid ip %q", ip)
	}

	record, err := l.reader.Country(addr)
	if err != nil {
		return "", fmt.Errorf("GeoIP lookup failed: %w", err)
	}

	name := record.Country.Names["en"]
	if name == "" {
		return "", ErrNoCountry
	}
	return name, nil
}

func (l *GeoIPLocator) Close() error {
	return l.reader.Close()
}
