// Package taxonomy describes a provider's hierarchical catalog of resolutions,
// datasets and parameters.
package taxonomy

import (
	"errors"
	"time"
)

// ErrInvalidEnumeration is returned when a token matches no taxonomy entry.
var ErrInvalidEnumeration = errors.New("invalid enumeration")

// Resolution is the temporal resolution of a dataset.
type Resolution string

const (
	ResolutionMinute1   Resolution = "minute_1"
	ResolutionMinute5   Resolution = "minute_5"
	ResolutionMinute10  Resolution = "minute_10"
	ResolutionHourly    Resolution = "hourly"
	ResolutionSubdaily  Resolution = "subdaily"
	ResolutionDaily     Resolution = "daily"
	ResolutionMonthly   Resolution = "monthly"
	ResolutionAnnual    Resolution = "annual"
	ResolutionUndefined Resolution = "undefined"
)

// IsHighFrequency reports whether the resolution is finer than hourly.
func (r Resolution) IsHighFrequency() bool {
	switch r {
	case ResolutionMinute1, ResolutionMinute5, ResolutionMinute10:
		return true
	default:
		return false
	}
}

// Frequency returns the nominal step between two values of the resolution.
// Monthly and annual steps are approximations; zero means no fixed step.
func (r Resolution) Frequency() time.Duration {
	switch r {
	case ResolutionMinute1:
		return time.Minute
	case ResolutionMinute5:
		return 5 * time.Minute
	case ResolutionMinute10:
		return 10 * time.Minute
	case ResolutionHourly:
		return time.Hour
	case ResolutionSubdaily:
		return 6 * time.Hour
	case ResolutionDaily:
		return 24 * time.Hour
	case ResolutionMonthly:
		return 30 * 24 * time.Hour
	case ResolutionAnnual:
		return 365 * 24 * time.Hour
	default:
		return 0
	}
}

// Period is the age class of the requested data.
type Period string

const (
	PeriodHistorical Period = "historical"
	PeriodRecent     Period = "recent"
	PeriodNow        Period = "now"
	PeriodFuture     Period = "future"
)

var periodOrder = map[Period]int{
	PeriodHistorical: 0,
	PeriodRecent:     1,
	PeriodNow:        2,
	PeriodFuture:     3,
}

// Order returns the sort rank of the period, oldest first.
func (p Period) Order() int {
	if o, ok := periodOrder[p]; ok {
		return o
	}
	return len(periodOrder)
}

// PeriodType tells whether a provider accepts several periods per request.
type PeriodType int

const (
	PeriodFixed PeriodType = iota
	PeriodMulti
)

// Kind separates observation networks from forecast products.
type Kind string

const (
	KindObservation Kind = "observation"
	KindForecast    Kind = "forecast"
)

// NodeKind distinguishes dataset nodes from parameter nodes.
type NodeKind int

const (
	NodeDataset NodeKind = iota + 1
	NodeParameter
)

// Node is a named taxonomy value. Parameters resolved under a dataset carry
// the dataset name; flat parameters and datasets leave it empty.
type Node struct {
	Kind    NodeKind
	Name    string
	Dataset string
}

// DatasetNode returns the dataset node with the given name.
func DatasetNode(name string) Node {
	return Node{Kind: NodeDataset, Name: name}
}

// ParameterNode returns a parameter node, scoped to dataset when non-empty.
func ParameterNode(name, dataset string) Node {
	return Node{Kind: NodeParameter, Name: name, Dataset: dataset}
}

// IsDataset reports whether the node names a dataset.
func (n Node) IsDataset() bool {
	return n.Kind == NodeDataset
}

// IsZero reports whether the node is unset.
func (n Node) IsZero() bool {
	return n.Kind == 0 && n.Name == ""
}

func (n Node) String() string {
	if n.Dataset != "" {
		return n.Dataset + "." + n.Name
	}
	return n.Name
}

// Unit is the pair of units a parameter is delivered in and converted to.
type Unit struct {
	Origin string `json:"origin"`
	SI     string `json:"si"`
}

// Taxonomy is the capability every provider implements once as a concrete value.
type Taxonomy interface {
	Provider() string
	Kind() Kind
	HasDatasets() bool
	PeriodType() PeriodType
	Periods() []Period

	Resolutions() []Resolution
	Datasets(res Resolution) []Node
	Parameters(res Resolution, dataset Node) []Node
	IsUniqueDataset(res Resolution) bool
	UnitOf(res Resolution, dataset, parameter Node) (Unit, bool)
	DatasetForParameter(res Resolution, parameter Node) (Node, bool)

	LookupResolution(token string) (Resolution, error)
	LookupPeriod(token string) (Period, error)
	LookupDataset(res Resolution, token string) (Node, error)
	LookupParameter(res Resolution, token string) (Node, error)
	ScopedParameter(res Resolution, dataset Node, name string) (Node, error)
}
