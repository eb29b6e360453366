package maps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"googlemaps.github.io/maps"

	"navsmart/internal/observability"
)

// NewClient creates a Google Maps client for the given API key.
// Extra options (base URL, HTTP client) are mainly used by tests.
func NewClient(apiKey string, opts ...maps.ClientOption) (*maps.Client, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return client, nil
}

// StatusError is a non-OK status reported by the provider.
type StatusError struct {
	Status  string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return "directions provider status " + e.Status
	}
	return "directions provider status " + e.Status + ": " + e.Message
}

// statusFromError recovers the provider status from the client's "maps: STATUS - message" errors.
func statusFromError(err error) *StatusError {
	var se *StatusError
	if errors.As(err, &se) {
		return se
	}
	rest, ok := strings.CutPrefix(err.Error(), "maps: ")
	if !ok {
		return nil
	}
	status, msg, _ := strings.Cut(rest, " - ")
	status = strings.TrimSpace(status)
	if status == "" || strings.ToUpper(status) != status || strings.ContainsAny(status, " ,.") {
		return nil
	}
	return &StatusError{Status: status, Message: strings.TrimSpace(msg)}
}

// LegSummary is the provider-reported metadata of the first leg.
type LegSummary struct {
	StartAddress string `json:"start_address"`
	EndAddress   string `json:"end_address"`
	Distance     string `json:"distance"`
	Duration     string `json:"duration"`
}

// StopPoints is the decoded route shape between two places.
type StopPoints struct {
	Points []maps.LatLng
	Leg    *LegSummary
}

// RouteService handles interactions with the Google Directions API.
type RouteService struct {
	client  *maps.Client
	timeout time.Duration
	metrics *observability.Metrics
}

func NewRouteService(client *maps.Client, timeout time.Duration, metrics *observability.Metrics) *RouteService {
	return &RouteService{client: client, timeout: timeout, metrics: metrics}
}

// GetStopPoints requests a driving route and decodes the overview polyline of the first route.
// A non-OK provider status is returned as *StatusError with an empty result.
func (s *RouteService) GetStopPoints(ctx context.Context, origin, destination string) (*StopPoints, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	r := &maps.DirectionsRequest{
		Origin:      origin,
		Destination: destination,
		Mode:        maps.TravelModeDriving,
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		if se := statusFromError(err); se != nil {
			s.metrics.ObserveDirections(se.Status)
			slog.WarnContext(ctx, "directions status not OK", "status", se.Status, "origin", origin, "destination", destination)
			return &StopPoints{}, se
		}
		s.metrics.ObserveDirections("TRANSPORT_ERROR")
		return &StopPoints{}, fmt.Errorf("maps api error: %w", err)
	}

	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		s.metrics.ObserveDirections("ZERO_RESULTS")
		return &StopPoints{}, &StatusError{Status: "ZERO_RESULTS", Message: "no route found"}
	}
	s.metrics.ObserveDirections("OK")

	route := routes[0]
	points, err := route.OverviewPolyline.Decode()
	if err != nil {
		return &StopPoints{}, fmt.Errorf("decode polyline: %w", err)
	}

	leg := route.Legs[0]
	summary := &LegSummary{
		StartAddress: leg.StartAddress,
		EndAddress:   leg.EndAddress,
		Distance:     leg.Distance.HumanReadable,
		Duration:     formatDuration(leg.Duration),
	}
	slog.DebugContext(ctx, "directions resolved",
		"from", summary.StartAddress, "to", summary.EndAddress,
		"distance", summary.Distance, "duration", summary.Duration, "points", len(points))

	return &StopPoints{Points: points, Leg: summary}, nil
}

// formatDuration renders a leg duration the way the provider's text field does ("5 hours 3 mins").
func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	days := int(d / (24 * time.Hour))
	hours := int(d%(24*time.Hour)) / int(time.Hour)
	mins := int(d%time.Hour) / int(time.Minute)

	var parts []string
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if mins > 0 || len(parts) == 0 {
		parts = append(parts, plural(mins, "min"))
	}
	return strings.Join(parts, " ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
