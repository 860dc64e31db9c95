package models

import (
	"github.com/stationkit/stationkit/internal/interpolation"
)

// CandidateSet is the station set selected for one parameter.
type CandidateSet struct {
	Parameter  string    `json:"parameter"`
	Dataset    string    `json:"dataset"`
	Sufficient bool      `json:"sufficient"`
	UsableSets int       `json:"usable_sets"`
	Iterations int       `json:"iterations"`
	Stations   []Station `json:"stations"`
	Columns    []string  `json:"columns"`
	Rows       []Row     `json:"rows,omitempty"`
}

// Row is one timestamp of the aligned value matrix.
type Row struct {
	Date   Timestamp  `json:"date"`
	Values []*float64 `json:"values"`
}

// Candidates is the body of GET /v1/interpolation/candidates.
type Candidates struct {
	Request   RequestSummary `json:"request"`
	Latitude  float64        `json:"latitude"`
	Longitude float64        `json:"longitude"`
	Sets      []CandidateSet `json:"sets"`
}

// NewCandidateSet converts a selection. Rows are included when withValues is set.
func NewCandidateSet(c *interpolation.Candidates, withValues bool) CandidateSet {
	set := CandidateSet{
		Parameter:  c.Parameter.Parameter.Name,
		Dataset:    c.Parameter.Dataset.Name,
		Sufficient: c.Sufficient,
		UsableSets: c.UsableSets,
		Iterations: c.Iterations,
		Stations:   NewStations(c.Stations),
		Columns:    []string{},
	}
	if c.Values == nil {
		return set
	}
	set.Columns = c.Values.Columns()
	if withValues {
		for _, r := range c.Values.Rows() {
			set.Rows = append(set.Rows, Row{Date: Timestamp(r.Date), Values: r.Values})
		}
	}
	return set
}
