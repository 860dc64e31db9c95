// Package interpolation assembles the station sets used to interpolate
// values at arbitrary points.
package interpolation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/stationkit/stationkit/internal/parameter"
	"github.com/stationkit/stationkit/internal/request"
	"github.com/stationkit/stationkit/internal/stations"
)

const tracerName = "github.com/stationkit/stationkit/internal/interpolation"

// ErrUnsupportedResolution is returned for resolutions finer than hourly.
var ErrUnsupportedResolution = errors.New("interpolation is not supported for high-frequency resolutions")

// ValueSource delivers the value series of one station and parameter.
type ValueSource interface {
	Values(ctx context.Context, req *request.Request, stationID string, entry parameter.Entry) ([]Observation, error)
}

// Config holds configuration for candidate selection.
type Config struct {
	// Values delivers station series. Required.
	Values ValueSource

	// PoolSize is the number of nearest stations considered.
	// Default: 20
	PoolSize int

	// MinStations is the smallest candidate set worth returning.
	// Default: 3
	MinStations int

	// MinValues is the number of stations that must report at a timestamp
	// for it to count as a usable value set.
	// Default: 3
	MinValues int

	// CriticalThreshold stops growth once adding a station increases the
	// usable value sets by less than this ratio.
	// Default: 0.05
	CriticalThreshold float64

	// MaxIterations caps the stations tried per selection.
	// Default: PoolSize
	MaxIterations int

	// Homogeneous lists the parameters that vary smoothly in space and may
	// be interpolated.
	// Default: temperature_air_mean_200
	Homogeneous []string

	Logger zerolog.Logger
}

// DefaultConfig returns the default selection configuration.
func DefaultConfig() Config {
	return Config{
		PoolSize:          20,
		MinStations:       3,
		MinValues:         3,
		CriticalThreshold: 0.05,
		MaxIterations:     20,
		Homogeneous:       []string{"temperature_air_mean_200"},
	}
}

// Candidates is the outcome of one selection.
type Candidates struct {
	Parameter  parameter.Entry    `json:"parameter"`
	Stations   []stations.Station `json:"stations"`
	Values     *ValueMatrix       `json:"-"`
	UsableSets int                `json:"usable_sets"`
	Iterations int                `json:"iterations"`

	// Sufficient is false when fewer than MinStations stations had data.
	Sufficient bool `json:"sufficient"`
}

// Interpolator selects interpolation candidates for the request of a
// station selector.
type Interpolator struct {
	config      Config
	stations    *stations.Selector
	homogeneous map[string]bool
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewInterpolator creates an Interpolator. Zero config values take their defaults.
func NewInterpolator(config Config, st *stations.Selector) *Interpolator {
	defaults := DefaultConfig()
	if config.PoolSize <= 0 {
		config.PoolSize = defaults.PoolSize
	}
	if config.MinStations <= 0 {
		config.MinStations = defaults.MinStations
	}
	if config.MinValues <= 0 {
		config.MinValues = defaults.MinValues
	}
	if config.CriticalThreshold <= 0 {
		config.CriticalThreshold = defaults.CriticalThreshold
	}
	if config.MaxIterations <= 0 {
		config.MaxIterations = config.PoolSize
	}
	if len(config.Homogeneous) == 0 {
		config.Homogeneous = defaults.Homogeneous
	}

	homogeneous := make(map[string]bool, len(config.Homogeneous))
	for _, p := range config.Homogeneous {
		homogeneous[strings.ToLower(p)] = true
	}

	return &Interpolator{
		config:      config,
		stations:    st,
		homogeneous: homogeneous,
		logger:      config.Logger.With().Str("component", "interpolation").Logger(),
		tracer:      otel.Tracer(tracerName),
	}
}

// Interpolate selects candidates for every eligible parameter of the
// request. Whole-dataset entries and parameters outside the homogeneous
// list are skipped.
func (i *Interpolator) Interpolate(ctx context.Context, latitude, longitude float64) ([]*Candidates, error) {
	req := i.stations.Request()
	if err := checkResolution(req); err != nil {
		return nil, err
	}

	var out []*Candidates
	for _, entry := range req.Parameters() {
		if entry.IsDataset() {
			i.logger.Info().Str("dataset", entry.Dataset.Name).Msg("only individual parameters can be interpolated")
			continue
		}
		if !i.homogeneous[entry.Parameter.Name] {
			i.logger.Info().Str("parameter", entry.Parameter.Name).Msg("parameter can not be interpolated")
			continue
		}
		c, err := i.Select(ctx, latitude, longitude, entry)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Select grows a candidate set from the nearest stations until it holds at
// least MinStations stations and the last addition raised the usable value
// sets by less than CriticalThreshold. At most MaxIterations stations are
// tried.
//
// Growth is measured against the set without the newest station. Until
// MinValues stations are in the set that baseline has no usable sets, so
// growth is +Inf and the earliest stop is at MinValues+1 stations.
func (i *Interpolator) Select(ctx context.Context, latitude, longitude float64, entry parameter.Entry) (*Candidates, error) {
	req := i.stations.Request()
	if err := checkResolution(req); err != nil {
		return nil, err
	}

	ctx, span := i.tracer.Start(ctx, "interpolation.select", trace.WithAttributes(
		attribute.String("interpolation.parameter", entry.String()),
		attribute.Float64("interpolation.latitude", latitude),
		attribute.Float64("interpolation.longitude", longitude),
	))
	defer span.End()

	pool, err := i.stations.FilterByRank(ctx, latitude, longitude, i.config.PoolSize)
	if err != nil {
		return nil, fmt.Errorf("ranking interpolation pool: %w", err)
	}

	matrix := NewValueMatrix()
	store := newGrowthStore(i.config.MinValues)
	result := &Candidates{Parameter: entry, Values: matrix}

	for _, st := range pool.Stations() {
		if result.Iterations >= i.config.MaxIterations {
			break
		}
		result.Iterations++

		series, err := i.config.Values.Values(ctx, req, st.ID, entry)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			i.logger.Warn().Err(err).Str("station_id", st.ID).Msg("skipping station without values")
			continue
		}
		if !hasValue(series) {
			continue
		}

		matrix.AddColumn(st.ID, series)
		result.Stations = append(result.Stations, st)
		growth := store.growth(matrix)

		if len(result.Stations) >= i.config.MinStations && growth < i.config.CriticalThreshold {
			break
		}
	}

	result.UsableSets = matrix.UsableSets(len(result.Stations), i.config.MinValues)
	result.Sufficient = len(result.Stations) >= i.config.MinStations

	span.SetAttributes(
		attribute.Int("interpolation.stations", len(result.Stations)),
		attribute.Int("interpolation.iterations", result.Iterations),
		attribute.Int("interpolation.usable_sets", result.UsableSets),
	)

	if !result.Sufficient {
		i.logger.Warn().
			Str("parameter", entry.String()).
			Float64("latitude", latitude).
			Float64("longitude", longitude).
			Int("stations", len(result.Stations)).
			Int("iterations", result.Iterations).
			Msg("not enough stations for interpolation")
	}
	return result, nil
}

func checkResolution(req *request.Request) error {
	if req.Resolution().IsHighFrequency() {
		return fmt.Errorf("%w: %s", ErrUnsupportedResolution, req.Resolution())
	}
	return nil
}

func hasValue(series []Observation) bool {
	for _, o := range series {
		if o.Value != nil {
			return true
		}
	}
	return false
}
