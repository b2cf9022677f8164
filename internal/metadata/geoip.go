package metadata

import (
	"log/slog"
	"net"

	"github.com/Voralis/grantly/internal/config"
	"github.com/oschwald/geoip2-golang"
)

// GeoIP resolves country and city from an IP address using a local
// MaxMind GeoLite2 database. A nil reader means lookups are disabled and
// every lookup returns empty values.
type GeoIP struct {
	reader *geoip2.Reader
}

// OpenGeoIP opens the GeoLite2 database configured in cfg. When lookups are
// disabled or the database file is missing, a disabled GeoIP is returned
// rather than an error so the rest of the system keeps working.
func OpenGeoIP(cfg *config.GeoIPConfig) *GeoIP {
	if !cfg.Enabled {
		slog.Info("GeoIP lookup is disabled by configuration")
		return &GeoIP{}
	}

	reader, err := geoip2.Open(cfg.DatabasePath)
	if err != nil {
		slog.Warn("GeoIP database not available, geolocation will be skipped",
			"path", cfg.DatabasePath, "error", err)
		return &GeoIP{}
	}

	slog.Info("GeoIP database loaded", "path", cfg.DatabasePath)
	return &GeoIP{reader: reader}
}

// Close releases the underlying database reader
func (g *GeoIP) Close() error {
	if g.reader != nil {
		return g.reader.Close()
	}
	return nil
}

// Lookup returns the country and city for the given IP address. Private and
// local addresses are skipped, as are unparsable ones; both return empty
// values instead of an error.
func (g *GeoIP) Lookup(ipAddress string) (country, city string) {
	if g.reader == nil || ipAddress == "" {
		return "", ""
	}

	ip := net.ParseIP(ipAddress)
	if ip == nil {
		slog.Debug("Failed to parse IP address for geolocation", "ip", ipAddress)
		return "", ""
	}

	if isPrivateOrLocalIP(ip) {
		slog.Debug("Private or local IP address, skipping geolocation", "ip", ipAddress)
		return "", ""
	}

	record, err := g.reader.City(ip)
	if err != nil {
		slog.Debug("Geolocation lookup failed", "ip", ipAddress, "error", err)
		return "", ""
	}

	country = record.Country.Names["en"]
	city = record.City.Names["en"]
	return country, city
}

// isPrivateOrLocalIP reports whether the IP is loopback, link-local,
// private, or unspecified
func isPrivateOrLocalIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsPrivate() ||
		ip.IsUnspecified()
}
