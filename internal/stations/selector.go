package stations

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/stationkit/stationkit/internal/request"
)

const tracerName = "github.com/stationkit/stationkit/internal/stations"

// DefaultNameThreshold is the minimum name similarity used when none is given.
const DefaultNameThreshold = 90

// ErrInvalidArgument is returned for filter arguments outside their domain.
// The station source is not queried when it is returned.
var ErrInvalidArgument = errors.New("invalid argument")

// Config holds the collaborators of a Selector.
type Config struct {
	// Source delivers the raw station list. Required.
	Source Source

	// Scorer rates name similarity. Default: TokenSet.
	Scorer Scorer

	Logger zerolog.Logger
}

// Selector narrows the station catalog of one request. Every filter reads
// the full catalog once and returns a new Result; the request is never
// modified.
type Selector struct {
	req    *request.Request
	source Source
	scorer Scorer
	logger zerolog.Logger
	tracer trace.Tracer
}

// NewSelector creates a selector for req.
func NewSelector(cfg Config, req *request.Request) *Selector {
	if cfg.Scorer == nil {
		cfg.Scorer = TokenSet{}
	}
	return &Selector{
		req:    req,
		source: cfg.Source,
		scorer: cfg.Scorer,
		logger: cfg.Logger.With().Str("component", "stations").Str("provider", req.Provider()).Logger(),
		tracer: otel.Tracer(tracerName),
	}
}

// Request returns the request the selector is bound to.
func (s *Selector) Request() *request.Request {
	return s.req
}

// All returns the full station table, coerced to the station columns. A
// fresh table is built on every call.
func (s *Selector) All(ctx context.Context) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "stations.all")
	defer span.End()

	stations, err := s.all(ctx)
	if err != nil {
		return nil, spanError(span, err)
	}
	span.SetAttributes(attribute.Int("stations.count", len(stations)))
	return NewResult(s.req, stations), nil
}

func (s *Selector) all(ctx context.Context) ([]Station, error) {
	if s.source == nil {
		return nil, errors.New("stations: no source configured")
	}
	records, err := s.source.Stations(ctx, s.req)
	if err != nil {
		return nil, fmt.Errorf("fetching stations: %w", err)
	}

	out := make([]Station, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		st, err := Coerce(r)
		if err != nil {
			return nil, fmt.Errorf("coercing station row: %w", err)
		}
		if seen[st.ID] {
			s.logger.Warn().Str("station_id", st.ID).Msg("duplicate station id ignored")
			continue
		}
		seen[st.ID] = true
		out = append(out, st)
	}
	return out, nil
}

// FilterByStationID keeps stations whose identifier is in ids. Identifiers
// are compared in their canonical string form.
func (s *Selector) FilterByStationID(ctx context.Context, ids ...any) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "stations.filter_by_station_id")
	defer span.End()

	wanted := make(map[string]bool, len(ids))
	canonical := make([]string, 0, len(ids))
	for _, id := range ids {
		c := strings.TrimSpace(fmt.Sprint(id))
		wanted[c] = true
		canonical = append(canonical, c)
	}
	span.SetAttributes(attribute.StringSlice("stations.station_id", canonical))

	all, err := s.all(ctx)
	if err != nil {
		return nil, spanError(span, err)
	}

	s.logger.Info().Strs("station_id", canonical).Msg("filtering by station id")

	out := make([]Station, 0, len(canonical))
	for _, st := range all {
		if wanted[st.ID] {
			out = append(out, st)
		}
	}
	return s.result(span, out, func(e *zerolog.Event) {
		e.Strs("station_id", canonical)
	}), nil
}

// FilterByName matches station names against name with the scorer. With
// first set only the best match at or above threshold is kept, otherwise
// every match at or above threshold. All rows carrying a matched name are
// returned in source order.
func (s *Selector) FilterByName(ctx context.Context, name string, first bool, threshold float64) (*Result, error) {
	if threshold < 0 || math.IsNaN(threshold) {
		return nil, fmt.Errorf("%w: threshold must be >= 0, got %v", ErrInvalidArgument, threshold)
	}

	ctx, span := s.tracer.Start(ctx, "stations.filter_by_name", trace.WithAttributes(
		attribute.String("stations.name", name),
		attribute.Bool("stations.first", first),
		attribute.Float64("stations.threshold", threshold),
	))
	defer span.End()

	all, err := s.all(ctx)
	if err != nil {
		return nil, spanError(span, err)
	}

	matched := make(map[string]bool)
	bestScore := -1.0
	bestName := ""
	for _, st := range all {
		score := s.scorer.Score(name, st.Name)
		if score < threshold {
			continue
		}
		if first {
			if score > bestScore {
				bestScore, bestName = score, st.Name
			}
			continue
		}
		matched[st.Name] = true
	}
	if first && bestScore >= 0 {
		matched[bestName] = true
	}

	out := make([]Station, 0, len(matched))
	for _, st := range all {
		if matched[st.Name] {
			out = append(out, st)
		}
	}
	return s.result(span, out, func(e *zerolog.Event) {
		e.Str("name", name).Bool("first", first).Float64("threshold", threshold)
	}), nil
}

// FilterByRank returns the rank stations closest to the query point, nearest
// first, with Distance set in kilometers. Stations without coordinates are
// not ranked.
func (s *Selector) FilterByRank(ctx context.Context, latitude, longitude float64, rank int) (*Result, error) {
	if rank < 1 {
		return nil, fmt.Errorf("%w: rank must be at least 1, got %d", ErrInvalidArgument, rank)
	}
	query, err := queryPoint(latitude, longitude)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "stations.filter_by_rank", trace.WithAttributes(
		attribute.Float64("stations.latitude", latitude),
		attribute.Float64("stations.longitude", longitude),
		attribute.Int("stations.rank", rank),
	))
	defer span.End()

	all, err := s.all(ctx)
	if err != nil {
		return nil, spanError(span, err)
	}

	ranked := rankByDistance(all, query)
	if len(ranked) > rank {
		ranked = ranked[:rank]
	}
	return s.result(span, ranked, func(e *zerolog.Event) {
		e.Float64("latitude", latitude).Float64("longitude", longitude).Int("rank", rank)
	}), nil
}

// FilterByDistance returns every station within distance of the query point,
// nearest first. unit names the distance unit; empty means kilometers.
func (s *Selector) FilterByDistance(ctx context.Context, latitude, longitude, distance float64, unit string) (*Result, error) {
	if distance < 0 || math.IsNaN(distance) {
		return nil, fmt.Errorf("%w: distance must be at least 0, got %v", ErrInvalidArgument, distance)
	}
	km, err := ToKilometers(distance, unit)
	if err != nil {
		return nil, err
	}
	query, err := queryPoint(latitude, longitude)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "stations.filter_by_distance", trace.WithAttributes(
		attribute.Float64("stations.latitude", latitude),
		attribute.Float64("stations.longitude", longitude),
		attribute.Float64("stations.distance_km", km),
	))
	defer span.End()

	all, err := s.all(ctx)
	if err != nil {
		return nil, spanError(span, err)
	}

	ranked := rankByDistance(all, query)
	out := make([]Station, 0, len(ranked))
	for _, st := range ranked {
		if *st.Distance > km {
			break
		}
		out = append(out, st)
	}
	return s.result(span, out, func(e *zerolog.Event) {
		e.Float64("latitude", latitude).Float64("longitude", longitude).Float64("distance_km", km)
	}), nil
}

// FilterByBBox keeps stations inside the box, borders included. left must be
// below right and bottom below top.
func (s *Selector) FilterByBBox(ctx context.Context, left, bottom, right, top float64) (*Result, error) {
	if !(left < right) {
		return nil, fmt.Errorf("%w: bbox left %v must be smaller than right %v", ErrInvalidArgument, left, right)
	}
	if !(bottom < top) {
		return nil, fmt.Errorf("%w: bbox bottom %v must be smaller than top %v", ErrInvalidArgument, bottom, top)
	}
	bound := orb.Bound{Min: orb.Point{left, bottom}, Max: orb.Point{right, top}}

	ctx, span := s.tracer.Start(ctx, "stations.filter_by_bbox", trace.WithAttributes(
		attribute.Float64Slice("stations.bbox", []float64{left, bottom, right, top}),
	))
	defer span.End()

	all, err := s.all(ctx)
	if err != nil {
		return nil, spanError(span, err)
	}

	out := make([]Station, 0)
	for _, st := range all {
		if st.HasLocation() && bound.Contains(Point(st.Latitude, st.Longitude)) {
			out = append(out, st)
		}
	}
	return s.result(span, out, func(e *zerolog.Event) {
		e.Floats64("bbox", []float64{left, bottom, right, top})
	}), nil
}

func (s *Selector) result(span trace.Span, stations []Station, fields func(*zerolog.Event)) *Result {
	span.SetAttributes(attribute.Int("stations.count", len(stations)))
	if len(stations) == 0 {
		event := s.logger.Warn()
		fields(event)
		event.Msg("no stations found")
	}
	return NewResult(s.req, stations)
}

func queryPoint(latitude, longitude float64) (orb.Point, error) {
	if math.IsNaN(latitude) || latitude < -90 || latitude > 90 {
		return orb.Point{}, fmt.Errorf("%w: latitude %v out of range", ErrInvalidArgument, latitude)
	}
	if math.IsNaN(longitude) || longitude < -180 || longitude > 180 {
		return orb.Point{}, fmt.Errorf("%w: longitude %v out of range", ErrInvalidArgument, longitude)
	}
	return Point(latitude, longitude), nil
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
