// Package geoip maps client addresses to ISO country codes so the locale
// middleware can pick French for francophone visitors.
package geoip

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/oschwald/geoip2-golang"
)

// ErrUnavailable is returned when the resolver is not initialized.
var ErrUnavailable = errors.New("geoip resolver unavailable")

type countryReader interface {
	Country(ip net.IP) (*geoip2.Country, error)
}

// Resolver looks countries up in a MaxMind GeoIP2/GeoLite2 database.
type Resolver struct {
	reader countryReader
	closer func() error
}

// NewResolver opens the database at path. An empty path yields a nil
// resolver and no error: locale detection then relies on headers only.
func NewResolver(path string) (*Resolver, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geoip: open database: %w", err)
	}
	return &Resolver{reader: reader, closer: reader.Close}, nil
}

// CountryCode returns the upper-case ISO code for addr, which may carry a
// port. Loopback and private addresses resolve to "" without a lookup.
func (r *Resolver) CountryCode(addr string) (string, error) {
	if r == nil || r.reader == nil {
		return "", ErrUnavailable
	}
	ip := parseIP(addr)
	if ip == nil {
		return "", fmt.Errorf("geoip: invalid ip %q", addr)
	}
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() {
		return "", nil
	}
	record, err := r.reader.Country(ip)
	if err != nil {
		return "", fmt.Errorf("geoip: lookup country: %w", err)
	}
	if record == nil {
		return "", nil
	}
	return strings.ToUpper(record.Country.IsoCode), nil
}

func parseIP(addr string) net.IP {
	addr = strings.TrimSpace(addr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	return net.ParseIP(strings.Trim(addr, "[]"))
}

// Close releases the database.
func (r *Resolver) Close() error {
	if r == nil || r.closer == nil {
		return nil
	}
	return r.closer()
}
