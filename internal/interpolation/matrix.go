package interpolation

import (
	"math"
	"sort"
	"time"
)

// Observation is one value of a station series. A nil Value is missing.
type Observation struct {
	Date  time.Time `json:"date"`
	Value *float64  `json:"value"`
}

// ValueMatrix aligns station series by timestamp: one row per timestamp,
// one column per station. Missing values are NaN.
type ValueMatrix struct {
	columns []string
	dates   map[int64]time.Time
	rows    map[int64][]float64
}

// NewValueMatrix returns an empty matrix.
func NewValueMatrix() *ValueMatrix {
	return &ValueMatrix{
		dates: make(map[int64]time.Time),
		rows:  make(map[int64][]float64),
	}
}

// AddColumn appends the series of one station as a new column.
func (m *ValueMatrix) AddColumn(stationID string, series []Observation) {
	col := len(m.columns)
	m.columns = append(m.columns, stationID)
	for key, row := range m.rows {
		m.rows[key] = append(row, math.NaN())
	}
	for _, obs := range series {
		key := obs.Date.UnixNano()
		row, ok := m.rows[key]
		if !ok {
			row = make([]float64, col+1)
			for i := range row {
				row[i] = math.NaN()
			}
			m.rows[key] = row
			m.dates[key] = obs.Date.UTC()
		}
		if obs.Value != nil {
			row[col] = *obs.Value
		}
	}
}

// Columns returns the station identifiers in column order.
func (m *ValueMatrix) Columns() []string {
	return append([]string(nil), m.columns...)
}

// Len returns the number of rows.
func (m *ValueMatrix) Len() int {
	return len(m.rows)
}

// UsableSets counts the rows where at least minValues of the first cols
// columns hold a value.
func (m *ValueMatrix) UsableSets(cols, minValues int) int {
	if cols > len(m.columns) {
		cols = len(m.columns)
	}
	n := 0
	for _, row := range m.rows {
		present := 0
		for _, v := range row[:cols] {
			if !math.IsNaN(v) {
				present++
			}
		}
		if present >= minValues {
			n++
		}
	}
	return n
}

// Row is one timestamp of the matrix. Missing values are nil.
type Row struct {
	Date   time.Time  `json:"date"`
	Values []*float64 `json:"values"`
}

// Rows returns the matrix ordered by timestamp.
func (m *ValueMatrix) Rows() []Row {
	keys := make([]int64, 0, len(m.rows))
	for k := range m.rows {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make([]Row, 0, len(keys))
	for _, k := range keys {
		values := make([]*float64, len(m.columns))
		for i, v := range m.rows[k] {
			if !math.IsNaN(v) {
				v := v
				values[i] = &v
			}
		}
		out = append(out, Row{Date: m.dates[k], Values: values})
	}
	return out
}

// growthStore caches usable-set counts by column count. It lives for one
// selection run only.
type growthStore struct {
	minValues int
	counts    map[int]int
}

func newGrowthStore(minValues int) *growthStore {
	return &growthStore{minValues: minValues, counts: make(map[int]int)}
}

// growth returns the relative increase in usable sets contributed by the
// last column of m. A zero baseline yields +Inf.
func (g *growthStore) growth(m *ValueMatrix) float64 {
	n := len(m.columns)
	previous, ok := g.counts[n-1]
	if !ok {
		previous = m.UsableSets(n-1, g.minValues)
		g.counts[n-1] = previous
	}
	current := m.UsableSets(n, g.minValues)
	g.counts[n] = current

	if previous == 0 {
		return math.Inf(1)
	}
	return float64(current)/float64(previous) - 1
}
