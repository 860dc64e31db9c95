package stations

import (
	"github.com/stationkit/stationkit/internal/request"
)

// Result pairs a request with a filtered station table. It is never mutated
// after construction.
type Result struct {
	req      *request.Request
	stations []Station
}

// NewResult copies stations into a new result for req.
func NewResult(req *request.Request, stations []Station) *Result {
	return &Result{req: req, stations: append([]Station(nil), stations...)}
}

// Request returns the originating request.
func (r *Result) Request() *request.Request {
	return r.req
}

// Stations returns a copy of the rows in result order.
func (r *Result) Stations() []Station {
	return append([]Station(nil), r.stations...)
}

func (r *Result) Len() int {
	return len(r.stations)
}

func (r *Result) Empty() bool {
	return len(r.stations) == 0
}

// IDs returns the station identifiers in result order.
func (r *Result) IDs() []string {
	ids := make([]string, len(r.stations))
	for i, s := range r.stations {
		ids[i] = s.ID
	}
	return ids
}

// Records returns the rows as raw records.
func (r *Result) Records() []Record {
	out := make([]Record, len(r.stations))
	for i, s := range r.stations {
		out[i] = s.Record()
	}
	return out
}
