package maps

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"time"

	"googlemaps.github.io/maps"

	"navsmart/internal/observability"
)

// Candidate error texts.
const (
	ErrTextNotFound           = "not found"
	ErrTextServiceUnavailable = "service unavailable"
)

// LocationCandidate is a resolved (or unresolved) place. Coordinates and Error are never
// both set.
type LocationCandidate struct {
	Name      string   `json:"name,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Error     string   `json:"error,omitempty"`
}

func Found(name string, lat, lng float64) LocationCandidate {
	return LocationCandidate{Name: name, Latitude: &lat, Longitude: &lng}
}

func Failed(name, reason string) LocationCandidate {
	return LocationCandidate{Name: name, Error: reason}
}

func (c LocationCandidate) Resolved() bool {
	return c.Error == "" && c.Latitude != nil && c.Longitude != nil
}

// GeocodeCache stores resolved candidates by place name.
type GeocodeCache interface {
	Get(ctx context.Context, place string) (LocationCandidate, bool)
	Set(ctx context.Context, place string, c LocationCandidate)
}

// Geocoder resolves place names through the Google Geocoding API.
type Geocoder struct {
	client  *maps.Client
	cache   GeocodeCache
	metrics *observability.Metrics
}

// NewGeocoder wires a geocoder. cache may be nil.
func NewGeocoder(client *maps.Client, cache GeocodeCache, metrics *observability.Metrics) *Geocoder {
	return &Geocoder{client: client, cache: cache, metrics: metrics}
}

// Resolve looks up place with a bounded timeout. Failures are reported on the candidate,
// never returned as an error.
func (g *Geocoder) Resolve(ctx context.Context, place string, timeout time.Duration) LocationCandidate {
	if g.cache != nil {
		if c, ok := g.cache.Get(ctx, place); ok {
			g.metrics.ObserveGeocode("cache_hit")
			c.Name = place
			return c
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: place})
	candidate := candidateFrom(place, results, err)
	switch {
	case candidate.Resolved():
		g.metrics.ObserveGeocode("found")
		if g.cache != nil {
			g.cache.Set(ctx, place, candidate)
		}
	case candidate.Error == ErrTextNotFound:
		g.metrics.ObserveGeocode("not_found")
	case candidate.Error == ErrTextServiceUnavailable:
		g.metrics.ObserveGeocode("unavailable")
		slog.WarnContext(ctx, "geocoding unavailable", "place", place, "error", err)
	default:
		g.metrics.ObserveGeocode("error")
		slog.WarnContext(ctx, "geocoding failed", "place", place, "error", err)
	}
	return candidate
}

func candidateFrom(place string, results []maps.GeocodingResult, err error) LocationCandidate {
	if err != nil {
		if isUnavailable(err) {
			return Failed(place, ErrTextServiceUnavailable)
		}
		if se := statusFromError(err); se != nil && se.Status == "ZERO_RESULTS" {
			return Failed(place, ErrTextNotFound)
		}
		return Failed(place, err.Error())
	}
	if len(results) == 0 {
		return Failed(place, ErrTextNotFound)
	}
	loc := results[0].Geometry.Location
	return Found(place, loc.Lat, loc.Lng)
}

// isUnavailable reports timeouts and transport failures.
func isUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if se := statusFromError(err); se != nil {
		return se.Status == "OVER_QUERY_LIMIT" || se.Status == "UNKNOWN_ERROR"
	}
	return false
}

func cacheKey(place string) string {
	return strings.ToLower(strings.TrimSpace(place))
}
