package metadata

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/mileusna/useragent"
)

// Request holds the metadata captured from an inbound request at grant time.
// All fields are plain strings; absent values stay empty.
type Request struct {
	IPAddress  string
	UserAgent  string
	Browser    string
	DeviceType string
	OS         string
	Country    string
	City       string
}

// proxy headers checked in order; the first non-empty, non-"unknown" value wins
var ipHeaders = []string{
	"X-Forwarded-For",
	"X-Real-IP",
	"Proxy-Client-IP",
	"WL-Proxy-Client-IP",
	"HTTP_X_FORWARDED_FOR",
	"HTTP_X_FORWARDED",
	"HTTP_CLIENT_IP",
	"HTTP_FORWARDED_FOR",
	"HTTP_FORWARDED",
}

// Extractor captures IP, user-agent, and geolocation from inbound requests
type Extractor struct {
	geo *GeoIP
}

// NewExtractor creates an Extractor backed by the given GeoIP resolver
func NewExtractor(geo *GeoIP) *Extractor {
	return &Extractor{geo: geo}
}

// Extract captures all request metadata from the current request
func (e *Extractor) Extract(c *fiber.Ctx) Request {
	ipAddress := extractIPAddress(c)
	uaString := extractUserAgent(c)

	ua := useragent.Parse(uaString)

	country, city := e.geo.Lookup(ipAddress)

	return Request{
		IPAddress:  ipAddress,
		UserAgent:  uaString,
		Browser:    ua.Name,
		DeviceType: deviceType(ua),
		OS:         ua.OS,
		Country:    country,
		City:       city,
	}
}

// extractIPAddress walks the known proxy headers and falls back to the
// remote address. X-Forwarded-For may contain a chain; the first entry is
// the original client.
func extractIPAddress(c *fiber.Ctx) string {
	for _, header := range ipHeaders {
		ip := c.Get(header)
		if ip == "" || strings.EqualFold(ip, "unknown") {
			continue
		}
		if idx := strings.Index(ip, ","); idx >= 0 {
			ip = strings.TrimSpace(ip[:idx])
		}
		return ip
	}
	return c.IP()
}

// extractUserAgent returns the User-Agent header or "Unknown" when absent
func extractUserAgent(c *fiber.Ctx) string {
	ua := strings.TrimSpace(c.Get(fiber.HeaderUserAgent))
	if ua == "" {
		return "Unknown"
	}
	return ua
}

// deviceType maps the parsed user agent onto the device categories kept in
// the authorization history
func deviceType(ua useragent.UserAgent) string {
	switch {
	case ua.Mobile:
		return "Mobile"
	case ua.Tablet:
		return "Tablet"
	case ua.Bot:
		return "Bot"
	case ua.Desktop:
		return "Computer"
	default:
		return ""
	}
}
