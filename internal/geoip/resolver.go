// Package geoip resolves client IP addresses to geographic locations using
// an external best-effort lookup service.
package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/BhataDev/mtc-server/internal/geo"
)

var lookupOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "geoip_lookups_total",
	Help: "Total IP geolocation lookups by outcome",
}, []string{"outcome"}) // outcome: success, fallback, failure

// Location is a resolved geographic location.
type Location struct {
	Lat     float64
	Lng     float64
	City    string
	Region  string
	Country string
}

// Point returns the location's coordinates.
func (l *Location) Point() geo.Point {
	return geo.Point{Lat: l.Lat, Lng: l.Lng}
}

// Config holds resolver settings.
type Config struct {
	// Endpoint is the lookup URL prefix; the IP is appended as a path
	// segment (ip-api.com style).
	Endpoint string
	// Timeout bounds each external call. Lookups must never block the
	// request pipeline indefinitely.
	Timeout time.Duration
	// Fallback is returned for private, loopback and link-local addresses
	// without any external call.
	Fallback Location
}

// DefaultConfig returns resolver defaults.
func DefaultConfig() Config {
	return Config{
		Endpoint: "http://ip-api.com/json",
		Timeout:  3 * time.Second,
	}
}

// Resolver maps IP addresses to locations. Failures and timeouts are
// reported as "no location known" (nil), never as errors; the caller is
// expected to fall back to global/unscoped behavior.
type Resolver struct {
	client   *http.Client
	endpoint string
	fallback Location
	logger   zerolog.Logger
}

// NewResolver creates a resolver from config.
func NewResolver(cfg Config) *Resolver {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultConfig().Endpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Resolver{
		client:   &http.Client{Timeout: cfg.Timeout},
		endpoint: cfg.Endpoint,
		fallback: cfg.Fallback,
		logger:   log.With().Str("component", "geoip").Logger(),
	}
}

// lookupResponse is the external service's payload.
type lookupResponse struct {
	Status     string  `json:"status"`
	Country    string  `json:"country"`
	RegionName string  `json:"regionName"`
	City       string  `json:"city"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
}

// Resolve maps an IP address to a location, or nil when unknown.
// Non-routable addresses short-circuit to the configured fallback.
func (r *Resolver) Resolve(ctx context.Context, ip string) *Location {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		lookupOutcomes.WithLabelValues("failure").Inc()
		return nil
	}

	if isNonRoutable(parsed) {
		lookupOutcomes.WithLabelValues("fallback").Inc()
		fb := r.fallback
		return &fb
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s", r.endpoint, ip), nil)
	if err != nil {
		lookupOutcomes.WithLabelValues("failure").Inc()
		return nil
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Debug().Err(err).Str("ip", ip).Msg("geolocation lookup failed")
		lookupOutcomes.WithLabelValues("failure").Inc()
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		lookupOutcomes.WithLabelValues("failure").Inc()
		return nil
	}

	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		lookupOutcomes.WithLabelValues("failure").Inc()
		return nil
	}
	if body.Status != "success" {
		lookupOutcomes.WithLabelValues("failure").Inc()
		return nil
	}

	lookupOutcomes.WithLabelValues("success").Inc()
	return &Location{
		Lat:     body.Lat,
		Lng:     body.Lon,
		City:    body.City,
		Region:  body.RegionName,
		Country: body.Country,
	}
}

// isNonRoutable reports whether an external lookup would be pointless.
func isNonRoutable(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified()
}
