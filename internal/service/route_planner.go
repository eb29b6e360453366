package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"navsmart/internal/maps"
	"navsmart/internal/modules/extract"
	"navsmart/internal/observability"
)

// Reply sentences returned with every route result.
const (
	ReplyNotUnderstood = "Sorry, I couldn't understand the route request."
	ReplyNotFound      = "Sorry, I couldn't find one of the locations."
	replyRouteFormat   = "Here's the best route from %s to %s."
)

// Candidate errors for failed extraction.
const (
	ErrTextMissingFrom  = "Missing 'from' location"
	ErrTextMissingTo    = "Missing 'to' location"
	ErrTextIncomplete   = "route request incomplete"
	ErrTextInsufficient = "Could not detect both start and end locations"
)

// ErrAudioDisabled is returned when no transcriber is configured.
var ErrAudioDisabled = errors.New("audio input is not enabled")

type Geocoder interface {
	Resolve(ctx context.Context, place string, timeout time.Duration) maps.LocationCandidate
}

type Directions interface {
	GetStopPoints(ctx context.Context, origin, destination string) (*maps.StopPoints, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// RouteResult is the answer to a routing request. Start and End are always present.
type RouteResult struct {
	Reply      string                 `json:"reply"`
	Transcript string                 `json:"transcript,omitempty"`
	Start      maps.LocationCandidate `json:"start"`
	End        maps.LocationCandidate `json:"end"`
}

// DetailedRoute carries the decoded stop points between two places. Points is never null.
type DetailedRoute struct {
	Points [][2]float64            `json:"points"`
	Leg    *maps.LegSummary        `json:"leg,omitempty"`
	Status string                  `json:"status,omitempty"`
	Error  string                  `json:"error,omitempty"`
	Reply  string                  `json:"reply,omitempty"`
	Start  *maps.LocationCandidate `json:"start,omitempty"`
	End    *maps.LocationCandidate `json:"end,omitempty"`
}

type RoutePlannerDeps struct {
	Extractor      extract.Extractor
	AudioExtractor extract.Extractor
	Geocoder       Geocoder
	Directions     Directions
	Transcriber    Transcriber
	GeocodeTimeout time.Duration
	Metrics        *observability.Metrics
}

// RoutePlanner orchestrates extraction, geocoding and directions for the routing endpoints.
type RoutePlanner struct {
	extractor      extract.Extractor
	audioExtractor extract.Extractor
	geocoder       Geocoder
	directions     Directions
	transcriber    Transcriber
	geocodeTimeout time.Duration
	metrics        *observability.Metrics
}

// NewRoutePlanner wires the planner. AudioExtractor defaults to Extractor; Transcriber may be
// nil, which disables audio input.
func NewRoutePlanner(d RoutePlannerDeps) *RoutePlanner {
	if d.AudioExtractor == nil {
		d.AudioExtractor = d.Extractor
	}
	if d.GeocodeTimeout <= 0 {
		d.GeocodeTimeout = 10 * time.Second
	}
	return &RoutePlanner{
		extractor:      d.Extractor,
		audioExtractor: d.AudioExtractor,
		geocoder:       d.Geocoder,
		directions:     d.Directions,
		transcriber:    d.Transcriber,
		geocodeTimeout: d.GeocodeTimeout,
		metrics:        d.Metrics,
	}
}

// AudioEnabled reports whether PlanRouteFromAudio can be used.
func (p *RoutePlanner) AudioEnabled() bool { return p.transcriber != nil }

// PlanRoute extracts start and end from message and geocodes both.
func (p *RoutePlanner) PlanRoute(ctx context.Context, message string) RouteResult {
	return p.planRoute(ctx, p.extractor, message)
}

// PlanRouteFromAudio transcribes the clip and routes on the transcript. Transcription
// failures are returned; everything after that is reported on the result.
func (p *RoutePlanner) PlanRouteFromAudio(ctx context.Context, audio []byte) (RouteResult, error) {
	if p.transcriber == nil {
		return RouteResult{}, ErrAudioDisabled
	}
	transcript, err := p.transcriber.Transcribe(ctx, audio)
	if err != nil {
		return RouteResult{}, fmt.Errorf("transcribe: %w", err)
	}
	res := p.planRoute(ctx, p.audioExtractor, transcript)
	res.Transcript = transcript
	return res, nil
}

func (p *RoutePlanner) planRoute(ctx context.Context, ex extract.Extractor, message string) RouteResult {
	places, err := p.extract(ctx, ex, message)
	if err != nil {
		start, end := extractionFailure(err)
		return RouteResult{Reply: ReplyNotUnderstood, Start: start, End: end}
	}

	var start, end maps.LocationCandidate
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start = p.geocoder.Resolve(gctx, places[0], p.geocodeTimeout)
		return nil
	})
	g.Go(func() error {
		end = p.geocoder.Resolve(gctx, places[1], p.geocodeTimeout)
		return nil
	})
	_ = g.Wait()

	if !start.Resolved() || !end.Resolved() {
		return RouteResult{Reply: ReplyNotFound, Start: start, End: end}
	}
	return RouteResult{
		Reply: fmt.Sprintf(replyRouteFormat, places[0], places[1]),
		Start: start,
		End:   end,
	}
}

// DetailedRoute extracts start and end from message and returns the directions polyline.
// A non-OK provider status is reported on the result with empty points.
func (p *RoutePlanner) DetailedRoute(ctx context.Context, message string) DetailedRoute {
	places, err := p.extract(ctx, p.extractor, message)
	if err != nil {
		start, end := extractionFailure(err)
		return DetailedRoute{Points: [][2]float64{}, Reply: ReplyNotUnderstood, Start: &start, End: &end}
	}

	stops, err := p.directions.GetStopPoints(ctx, places[0], places[1])
	if err != nil {
		var se *maps.StatusError
		if errors.As(err, &se) {
			return DetailedRoute{Points: [][2]float64{}, Status: se.Status, Error: se.Error()}
		}
		slog.ErrorContext(ctx, "directions request failed", "origin", places[0], "destination", places[1], "error", err)
		return DetailedRoute{Points: [][2]float64{}, Error: "directions service unavailable"}
	}

	points := make([][2]float64, len(stops.Points))
	for i, pt := range stops.Points {
		points[i] = [2]float64{pt.Lat, pt.Lng}
	}
	return DetailedRoute{Points: points, Leg: stops.Leg, Status: "OK"}
}

func (p *RoutePlanner) extract(ctx context.Context, ex extract.Extractor, message string) ([]string, error) {
	places, err := ex.Extract(ctx, message)
	if err != nil {
		p.metrics.ObserveExtraction(ex.Name(), outcomeOf(err))
		slog.InfoContext(ctx, "route request not understood", "strategy", ex.Name(), "error", err)
		return nil, err
	}
	p.metrics.ObserveExtraction(ex.Name(), "ok")
	return places, nil
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, extract.ErrMissingKeyword):
		return "missing_keyword"
	case errors.Is(err, extract.ErrMalformedRequest):
		return "malformed"
	case errors.Is(err, extract.ErrInsufficientLocations):
		return "insufficient"
	default:
		return "error"
	}
}

// extractionFailure builds the two error candidates describing why extraction failed.
func extractionFailure(err error) (maps.LocationCandidate, maps.LocationCandidate) {
	var kwErr *extract.KeywordError
	switch {
	case errors.As(err, &kwErr):
		start, end := maps.Failed("", ErrTextIncomplete), maps.Failed("", ErrTextIncomplete)
		if kwErr.IsMissing(extract.KeywordFrom) {
			start.Error = ErrTextMissingFrom
		}
		if kwErr.IsMissing(extract.KeywordTo) {
			end.Error = ErrTextMissingTo
		}
		return start, end
	case errors.Is(err, extract.ErrInsufficientLocations):
		return maps.Failed("", ErrTextInsufficient), maps.Failed("", ErrTextInsufficient)
	case errors.Is(err, extract.ErrMalformedRequest):
		return maps.Failed("", err.Error()), maps.Failed("", err.Error())
	default:
		return maps.Failed("", maps.ErrTextServiceUnavailable), maps.Failed("", maps.ErrTextServiceUnavailable)
	}
}
