package stations_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stationkit/stationkit/internal/parameter"
	"github.com/stationkit/stationkit/internal/request"
	"github.com/stationkit/stationkit/internal/stations"
	"github.com/stationkit/stationkit/internal/taxonomy/dwd"
)

// fakeSource returns fixed records and counts calls.
type fakeSource struct {
	records []stations.Record
	err     error
	calls   atomic.Int32
}

func (f *fakeSource) Stations(_ context.Context, _ *request.Request) ([]stations.Record, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]stations.Record, len(f.records))
	for i, r := range f.records {
		cp := make(stations.Record, len(r))
		for k, v := range r {
			cp[k] = v
		}
		out[i] = cp
	}
	return out, nil
}

func germanStations() []stations.Record {
	return []stations.Record{
		{"station_id": "00433", "from_date": "1948-01-01", "to_date": "2024-01-01", "height": 48.0, "latitude": 52.4675, "longitude": 13.4021, "name": "Berlin-Tempelhof", "state": "Berlin"},
		{"station_id": "01975", "from_date": "1936-01-01", "to_date": "2024-01-01", "height": "11", "latitude": 53.6332, "longitude": 9.9881, "name": "Hamburg-Fuhlsbüttel", "state": "Hamburg"},
		{"station_id": 3379, "from_date": time.Date(1954, 1, 1, 0, 0, 0, 0, time.UTC), "to_date": "2024-01-01T00:00:00Z", "height": 515, "latitude": "48.1632", "longitude": 11.5429, "name": "München-Stadt", "state": "Bayern"},
		{"station_id": "02014", "from_date": "1950-01-01", "to_date": "", "height": 55.0, "latitude": 52.4644, "longitude": 9.6779, "name": "Hannover", "state": "Niedersachsen"},
		{"station_id": "99999", "name": "Unlocated", "state": ""},
	}
}

func newRequest(t *testing.T) *request.Request {
	t.Helper()
	req, err := request.New(request.Config{Taxonomy: dwd.Observation(), Logger: zerolog.Nop()}, request.Params{
		Parameters: []parameter.Spec{parameter.Name(dwd.TemperatureAirMean200)},
		Resolution: "daily",
		Periods:    []string{"historical"},
	})
	require.NoError(t, err)
	return req
}

func newSelector(t *testing.T, src stations.Source, logger zerolog.Logger) *stations.Selector {
	t.Helper()
	return stations.NewSelector(stations.Config{Source: src, Logger: logger}, newRequest(t))
}

func TestAll_CoercesAndIsFresh(t *testing.T) {
	src := &fakeSource{records: germanStations()}
	s := newSelector(t, src, zerolog.Nop())

	first, err := s.All(context.Background())
	require.NoError(t, err)
	second, err := s.All(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), src.calls.Load())
	assert.Equal(t, first.Stations(), second.Stations())
	assert.Same(t, s.Request(), first.Request())

	all := first.Stations()
	require.Len(t, all, 5)
	assert.Equal(t, "3379", all[2].ID)
	assert.Equal(t, 515.0, all[2].Height)
	assert.Equal(t, 48.1632, all[2].Latitude)
	assert.Equal(t, 11.0, all[1].Height)
	assert.Equal(t, time.UTC, all[0].FromDate.Location())
	assert.True(t, all[3].ToDate.IsZero())
	assert.True(t, math.IsNaN(all[4].Latitude))
	assert.False(t, all[4].HasLocation())
}

func TestAll_DuplicateIDsKeepFirst(t *testing.T) {
	records := germanStations()
	records = append(records, stations.Record{"station_id": "00433", "name": "Duplicate"})
	s := newSelector(t, &fakeSource{records: records}, zerolog.Nop())

	res, err := s.All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, res.Len())
	assert.Equal(t, "Berlin-Tempelhof", res.Stations()[0].Name)
}

func TestAll_SourceError(t *testing.T) {
	boom := errors.New("boom")
	s := newSelector(t, &fakeSource{err: boom}, zerolog.Nop())
	_, err := s.All(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestFilterByStationID(t *testing.T) {
	s := newSelector(t, &fakeSource{records: germanStations()}, zerolog.Nop())
	ctx := context.Background()

	res, err := s.FilterByStationID(ctx, 3379, " 00433 ", "nope")
	require.NoError(t, err)
	assert.Equal(t, []string{"00433", "3379"}, res.IDs())

	all, err := s.All(ctx)
	require.NoError(t, err)
	ids := make([]any, 0, all.Len())
	for _, id := range all.IDs() {
		ids = append(ids, id)
	}
	roundTrip, err := s.FilterByStationID(ctx, ids...)
	require.NoError(t, err)
	assert.Equal(t, all.Stations(), roundTrip.Stations())
}

func TestFilterByName(t *testing.T) {
	s := newSelector(t, &fakeSource{records: germanStations()}, zerolog.Nop())
	ctx := context.Background()

	res, err := s.FilterByName(ctx, "Berlin", true, stations.DefaultNameThreshold)
	require.NoError(t, err)
	assert.Equal(t, []string{"00433"}, res.IDs())

	res, err = s.FilterByName(ctx, "muenchen stadt", false, 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"3379"}, res.IDs())

	res, err = s.FilterByName(ctx, "münchen", true, 90)
	require.NoError(t, err)
	assert.Equal(t, []string{"3379"}, res.IDs())

	res, err = s.FilterByName(ctx, "Zugspitze", true, 90)
	require.NoError(t, err)
	assert.True(t, res.Empty())
}

func TestFilterByName_AllMatches(t *testing.T) {
	records := []stations.Record{
		{"station_id": "1", "name": "Berlin-Tempelhof", "latitude": 52.4, "longitude": 13.4},
		{"station_id": "2", "name": "Hamburg", "latitude": 53.6, "longitude": 9.9},
		{"station_id": "3", "name": "Berlin-Dahlem", "latitude": 52.4, "longitude": 13.3},
	}
	s := newSelector(t, &fakeSource{records: records}, zerolog.Nop())

	res, err := s.FilterByName(context.Background(), "Berlin", false, 90)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, res.IDs())

	res, err = s.FilterByName(context.Background(), "Berlin", true, 90)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, res.IDs())
}

func TestFilterByRank(t *testing.T) {
	s := newSelector(t, &fakeSource{records: germanStations()}, zerolog.Nop())
	ctx := context.Background()

	res, err := s.FilterByRank(ctx, 52.52, 13.40, 2)
	require.NoError(t, err)
	require.Equal(t, 2, res.Len())
	assert.Equal(t, []string{"00433", "02014"}, res.IDs())

	got := res.Stations()
	require.NotNil(t, got[0].Distance)
	assert.InDelta(t, 5.8, *got[0].Distance, 0.2)
	assert.LessOrEqual(t, *got[0].Distance, *got[1].Distance)

	res, err = s.FilterByRank(ctx, 52.52, 13.40, 100)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Len(), "stations without coordinates are not ranked")
	got = res.Stations()
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, *got[i-1].Distance, *got[i].Distance)
	}
}

func TestFilterByDistance(t *testing.T) {
	s := newSelector(t, &fakeSource{records: germanStations()}, zerolog.Nop())
	ctx := context.Background()

	res, err := s.FilterByDistance(ctx, 52.52, 13.40, 300, "km")
	require.NoError(t, err)
	assert.Equal(t, []string{"00433", "02014", "01975"}, res.IDs())

	miles, err := s.FilterByDistance(ctx, 52.52, 13.40, 300/1.609344, "Mi")
	require.NoError(t, err)
	assert.Equal(t, res.IDs(), miles.IDs())

	zero, err := s.FilterByDistance(ctx, 52.52, 13.40, 0, "")
	require.NoError(t, err)
	assert.True(t, zero.Empty())
}

func TestFilterByDistance_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := newSelector(t, &fakeSource{records: germanStations()}, zerolog.Nop())

	first, err := s.FilterByDistance(ctx, 52.52, 13.40, 300, "km")
	require.NoError(t, err)

	again := stations.NewSelector(stations.Config{Source: stations.SourceFunc(
		func(context.Context, *request.Request) ([]stations.Record, error) {
			return first.Records(), nil
		}),
		Logger: zerolog.Nop(),
	}, first.Request())
	second, err := again.FilterByDistance(ctx, 52.52, 13.40, 300, "km")
	require.NoError(t, err)
	assert.Equal(t, first.IDs(), second.IDs())
}

func TestFilterByBBox(t *testing.T) {
	records := []stations.Record{
		{"station_id": "a", "latitude": 5.0, "longitude": 5.0, "name": "inside"},
		{"station_id": "b", "latitude": 20.0, "longitude": 20.0, "name": "outside"},
		{"station_id": "c", "latitude": 5.0, "longitude": -5.0, "name": "west"},
		{"station_id": "d", "latitude": 10.0, "longitude": 0.0, "name": "corner"},
	}
	s := newSelector(t, &fakeSource{records: records}, zerolog.Nop())

	res, err := s.FilterByBBox(context.Background(), 0, 0, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "d"}, res.IDs())
}

func TestFilters_InvalidArgumentsSkipSource(t *testing.T) {
	src := &fakeSource{records: germanStations()}
	s := newSelector(t, src, zerolog.Nop())
	ctx := context.Background()

	calls := []struct {
		name string
		run  func() error
	}{
		{"rank 0", func() error { _, err := s.FilterByRank(ctx, 52, 13, 0); return err }},
		{"distance -1", func() error { _, err := s.FilterByDistance(ctx, 52, 13, -1, "km"); return err }},
		{"unknown unit", func() error { _, err := s.FilterByDistance(ctx, 52, 13, 1, "parsec"); return err }},
		{"threshold -5", func() error { _, err := s.FilterByName(ctx, "Berlin", true, -5); return err }},
		{"left >= right", func() error { _, err := s.FilterByBBox(ctx, 10, 0, 10, 10); return err }},
		{"bottom >= top", func() error { _, err := s.FilterByBBox(ctx, 0, 11, 10, 10); return err }},
		{"latitude out of range", func() error { _, err := s.FilterByRank(ctx, 91, 13, 1); return err }},
		{"empty sql", func() error { _, err := s.FilterBySQL(ctx, " "); return err }},
	}

	for _, c := range calls {
		t.Run(c.name, func(t *testing.T) {
			assert.ErrorIs(t, c.run(), stations.ErrInvalidArgument)
		})
	}
	assert.Equal(t, int32(0), src.calls.Load())
}

func TestFilters_EmptyResultLogsWarning(t *testing.T) {
	var buf bytes.Buffer
	s := newSelector(t, &fakeSource{records: germanStations()}, zerolog.New(&buf))

	res, err := s.FilterByStationID(context.Background(), "missing")
	require.NoError(t, err)
	assert.True(t, res.Empty())
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), "no stations found")
}

func TestResult_Immutable(t *testing.T) {
	s := newSelector(t, &fakeSource{records: germanStations()}, zerolog.New(io.Discard))
	res, err := s.All(context.Background())
	require.NoError(t, err)

	rows := res.Stations()
	rows[0].Name = "changed"
	assert.Equal(t, "Berlin-Tempelhof", res.Stations()[0].Name)
}

func TestStation_CoversWindow(t *testing.T) {
	st := stations.Station{
		FromDate: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		ToDate:   time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	inside, err := request.ConvertTimestamps("2005-01-01", "2006-01-01")
	require.NoError(t, err)
	after, err := request.ConvertTimestamps("2011-01-01", nil)
	require.NoError(t, err)

	assert.True(t, st.CoversWindow(nil))
	assert.True(t, st.CoversWindow(inside))
	assert.False(t, st.CoversWindow(after))

	open := stations.Station{FromDate: st.FromDate}
	assert.True(t, open.CoversWindow(after))
}
