// Package stations retrieves station catalogs and narrows them with
// geographic and textual filters.
package stations

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/stationkit/stationkit/internal/request"
)

// Column names of the station table contract.
const (
	ColumnStationID = "station_id"
	ColumnFromDate  = "from_date"
	ColumnToDate    = "to_date"
	ColumnHeight    = "height"
	ColumnLatitude  = "latitude"
	ColumnLongitude = "longitude"
	ColumnName      = "name"
	ColumnState     = "state"
	ColumnDistance  = "distance"
)

// Columns lists the station table columns in order.
var Columns = []string{
	ColumnStationID,
	ColumnFromDate,
	ColumnToDate,
	ColumnHeight,
	ColumnLatitude,
	ColumnLongitude,
	ColumnName,
	ColumnState,
}

// Record is one raw station row as delivered by a Source. Values may be of
// any type cast can coerce; missing keys are allowed.
type Record map[string]any

// Source delivers the raw station list for a request.
type Source interface {
	Stations(ctx context.Context, req *request.Request) ([]Record, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, req *request.Request) ([]Record, error)

func (f SourceFunc) Stations(ctx context.Context, req *request.Request) ([]Record, error) {
	return f(ctx, req)
}

// Station is a coerced station row. Missing coordinates and heights are NaN,
// missing dates are zero.
type Station struct {
	ID        string    `json:"station_id"`
	FromDate  time.Time `json:"from_date"`
	ToDate    time.Time `json:"to_date"`
	Height    float64   `json:"height"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Name      string    `json:"name"`
	State     string    `json:"state"`

	// Distance is set by the rank and distance filters, in kilometers.
	Distance *float64 `json:"distance,omitempty"`
}

// HasLocation reports whether both coordinates are known.
func (s Station) HasLocation() bool {
	return !math.IsNaN(s.Latitude) && !math.IsNaN(s.Longitude)
}

// CoversWindow reports whether the station's availability overlaps w.
// Zero dates are open ends; a nil window is always covered.
func (s Station) CoversWindow(w *request.Window) bool {
	if w == nil {
		return true
	}
	if !s.FromDate.IsZero() && s.FromDate.After(w.End) {
		return false
	}
	if !s.ToDate.IsZero() && s.ToDate.Before(w.Start) {
		return false
	}
	return true
}

// Record converts the station back into a raw row.
func (s Station) Record() Record {
	r := Record{
		ColumnStationID: s.ID,
		ColumnFromDate:  s.FromDate,
		ColumnToDate:    s.ToDate,
		ColumnHeight:    s.Height,
		ColumnLatitude:  s.Latitude,
		ColumnLongitude: s.Longitude,
		ColumnName:      s.Name,
		ColumnState:     s.State,
	}
	if s.Distance != nil {
		r[ColumnDistance] = *s.Distance
	}
	return r
}

// Coerce builds a Station from a raw row: station_id, name and state become
// strings, coordinates and height floats, dates UTC timestamps.
func Coerce(r Record) (Station, error) {
	id, err := cast.ToStringE(r[ColumnStationID])
	if err != nil {
		return Station{}, fmt.Errorf("%s: %w", ColumnStationID, err)
	}

	s := Station{ID: strings.TrimSpace(id)}

	if s.FromDate, err = toDate(r[ColumnFromDate]); err != nil {
		return Station{}, fmt.Errorf("station %s %s: %w", s.ID, ColumnFromDate, err)
	}
	if s.ToDate, err = toDate(r[ColumnToDate]); err != nil {
		return Station{}, fmt.Errorf("station %s %s: %w", s.ID, ColumnToDate, err)
	}
	if s.Height, err = toFloat(r[ColumnHeight]); err != nil {
		return Station{}, fmt.Errorf("station %s %s: %w", s.ID, ColumnHeight, err)
	}
	if s.Latitude, err = toFloat(r[ColumnLatitude]); err != nil {
		return Station{}, fmt.Errorf("station %s %s: %w", s.ID, ColumnLatitude, err)
	}
	if s.Longitude, err = toFloat(r[ColumnLongitude]); err != nil {
		return Station{}, fmt.Errorf("station %s %s: %w", s.ID, ColumnLongitude, err)
	}
	if s.Name, err = cast.ToStringE(r[ColumnName]); err != nil {
		return Station{}, fmt.Errorf("station %s %s: %w", s.ID, ColumnName, err)
	}
	if s.State, err = cast.ToStringE(r[ColumnState]); err != nil {
		return Station{}, fmt.Errorf("station %s %s: %w", s.ID, ColumnState, err)
	}

	if d, ok := r[ColumnDistance]; ok && d != nil {
		dist, err := cast.ToFloat64E(d)
		if err != nil {
			return Station{}, fmt.Errorf("station %s %s: %w", s.ID, ColumnDistance, err)
		}
		s.Distance = &dist
	}

	return s, nil
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case nil:
		return math.NaN(), nil
	case string:
		if strings.TrimSpace(t) == "" {
			return math.NaN(), nil
		}
		v = strings.TrimSpace(t)
	}
	return cast.ToFloat64E(v)
}

func toDate(v any) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		if t.IsZero() {
			return t, nil
		}
		return t.UTC(), nil
	case string:
		if strings.TrimSpace(t) == "" {
			return time.Time{}, nil
		}
		v = strings.TrimSpace(t)
	}
	parsed, err := cast.ToTimeInDefaultLocationE(v, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return parsed.UTC(), nil
}
