package models

import (
	"github.com/stationkit/stationkit/internal/request"
	"github.com/stationkit/stationkit/internal/stations"
)

// Station is one row of the station table. Unknown coordinates, heights
// and dates are null.
type Station struct {
	StationID string     `json:"station_id"`
	FromDate  *Timestamp `json:"from_date"`
	ToDate    *Timestamp `json:"to_date"`
	Height    *float64   `json:"height"`
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	Name      string     `json:"name"`
	State     string     `json:"state"`
	Distance  *float64   `json:"distance,omitempty"`
}

// NewStation converts a coerced station row.
func NewStation(s stations.Station) Station {
	return Station{
		StationID: s.ID,
		FromDate:  TimestampPtr(s.FromDate),
		ToDate:    TimestampPtr(s.ToDate),
		Height:    FloatPtr(s.Height),
		Latitude:  FloatPtr(s.Latitude),
		Longitude: FloatPtr(s.Longitude),
		Name:      s.Name,
		State:     s.State,
		Distance:  s.Distance,
	}
}

// NewStations converts a station slice, never returning nil.
func NewStations(in []stations.Station) []Station {
	out := make([]Station, len(in))
	for i, s := range in {
		out[i] = NewStation(s)
	}
	return out
}

// RequestSummary echoes the validated request back to the caller.
type RequestSummary struct {
	Provider   string     `json:"provider"`
	Resolution string     `json:"resolution"`
	Parameters []string   `json:"parameters"`
	Periods    []string   `json:"periods,omitempty"`
	StartDate  *Timestamp `json:"start_date,omitempty"`
	EndDate    *Timestamp `json:"end_date,omitempty"`
	Tidy       bool       `json:"tidy"`
	Humanize   bool       `json:"humanize"`
	SIUnits    bool       `json:"si_units"`
}

// NewRequestSummary describes req.
func NewRequestSummary(req *request.Request) RequestSummary {
	s := RequestSummary{
		Provider:   req.Provider(),
		Resolution: string(req.Resolution()),
		Parameters: make([]string, 0, len(req.Parameters())),
		Tidy:       req.Tidy(),
		Humanize:   req.Humanize(),
		SIUnits:    req.SIUnits(),
	}
	for _, e := range req.Parameters() {
		s.Parameters = append(s.Parameters, e.String())
	}
	for _, p := range req.Periods() {
		s.Periods = append(s.Periods, string(p))
	}
	if t, ok := req.StartDate(); ok {
		s.StartDate = TimestampPtr(t)
	}
	if t, ok := req.EndDate(); ok {
		s.EndDate = TimestampPtr(t)
	}
	return s
}

// StationList is the body of every station filter response.
type StationList struct {
	Request  RequestSummary `json:"request"`
	Filter   string         `json:"filter"`
	Count    int            `json:"count"`
	Stations []Station      `json:"stations"`
}

// StationQuery is the body of POST /v1/stations:query.
type StationQuery struct {
	RequestParams
	SQL string `json:"sql"`
}

// RequestParams carries the request fields shared by the JSON endpoints.
type RequestParams struct {
	Provider   string   `json:"provider"`
	Parameters []string `json:"parameters"`
	Resolution string   `json:"resolution"`
	Periods    []string `json:"periods"`
	StartDate  string   `json:"start_date"`
	EndDate    string   `json:"end_date"`
}
