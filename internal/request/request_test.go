package request_test

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stationkit/stationkit/internal/parameter"
	"github.com/stationkit/stationkit/internal/request"
	"github.com/stationkit/stationkit/internal/taxonomy"
	"github.com/stationkit/stationkit/internal/taxonomy/dwd"
)

func newConfig(tax taxonomy.Taxonomy, settings *request.Settings) request.Config {
	return request.Config{Taxonomy: tax, Settings: settings, Logger: zerolog.New(io.Discard)}
}

func TestConvertTimestamps(t *testing.T) {
	berlin := time.FixedZone("CET", 3600)

	tests := []struct {
		name      string
		start     any
		end       any
		wantNil   bool
		wantStart time.Time
		wantEnd   time.Time
		wantErr   error
	}{
		{name: "both absent", wantNil: true},
		{name: "empty strings", start: "", end: " ", wantNil: true},
		{
			name:      "date strings default to UTC",
			start:     "2020-01-01",
			end:       "2020-01-31T12:00:00",
			wantStart: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2020, 1, 31, 12, 0, 0, 0, time.UTC),
		},
		{
			name:      "only start",
			start:     "2021-06-01T00:00:00Z",
			wantStart: time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "only end as time",
			end:       time.Date(2021, 6, 1, 12, 0, 0, 0, berlin),
			wantStart: time.Date(2021, 6, 1, 12, 0, 0, 0, berlin),
			wantEnd:   time.Date(2021, 6, 1, 12, 0, 0, 0, berlin),
		},
		{
			name:    "start after end",
			start:   "2022-01-02",
			end:     "2022-01-01",
			wantErr: request.ErrStartDateEndDate,
		},
		{
			name:      "offsets compared by instant",
			start:     "2022-01-01T01:00:00+01:00",
			end:       "2022-01-01T00:00:00Z",
			wantStart: time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := request.ConvertTimestamps(tt.start, tt.end)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, w)
				return
			}
			require.NotNil(t, w)
			assert.True(t, tt.wantStart.Equal(w.Start), "start %s", w.Start)
			assert.True(t, tt.wantEnd.Equal(w.End), "end %s", w.End)
			assert.False(t, w.Start.After(w.End))
		})
	}
}

func TestConvertTimestamps_InvalidString(t *testing.T) {
	_, err := request.ConvertTimestamps("yesterday-ish", nil)
	assert.Error(t, err)
}

func TestNew_StartAfterEndAborts(t *testing.T) {
	_, err := request.New(newConfig(dwd.Observation(), nil), request.Params{
		Parameters: []parameter.Spec{parameter.Name("climate_summary")},
		Resolution: "daily",
		StartDate:  "2020-02-01",
		EndDate:    "2020-01-01",
	})
	assert.ErrorIs(t, err, request.ErrStartDateEndDate)
}

func TestNew_Observation(t *testing.T) {
	var buf bytes.Buffer
	cfg := request.Config{Taxonomy: dwd.Observation(), Logger: zerolog.New(&buf)}

	req, err := request.New(cfg, request.Params{
		Parameters: []parameter.Spec{
			parameter.Name(dwd.TemperatureAirMean200),
			parameter.Name("bogus"),
		},
		Resolution: "Daily",
		Periods:    []string{"now", "HISTORICAL", "recent"},
		StartDate:  "2020-01-01",
	})
	require.NoError(t, err)

	assert.Equal(t, taxonomy.ResolutionDaily, req.Resolution())
	assert.Equal(t, []taxonomy.Period{taxonomy.PeriodHistorical, taxonomy.PeriodRecent, taxonomy.PeriodNow}, req.Periods())
	require.Len(t, req.Parameters(), 1)
	assert.Equal(t, dwd.DatasetClimateSummary, req.Parameters()[0].Dataset.Name)
	assert.Equal(t, 24*time.Hour, req.Frequency())

	start, ok := req.StartDate()
	require.True(t, ok)
	end, _ := req.EndDate()
	assert.Equal(t, start, end)

	assert.Contains(t, buf.String(), "processing request")
	assert.Contains(t, buf.String(), "parameter dropped")
}

func TestNew_InvalidEnumerations(t *testing.T) {
	cfg := newConfig(dwd.Observation(), nil)

	_, err := request.New(cfg, request.Params{Resolution: "weekly"})
	assert.ErrorIs(t, err, taxonomy.ErrInvalidEnumeration)

	_, err = request.New(cfg, request.Params{Resolution: "daily", Periods: []string{"someday"}})
	assert.ErrorIs(t, err, taxonomy.ErrInvalidEnumeration)

	_, err = request.New(cfg, request.Params{})
	assert.ErrorIs(t, err, taxonomy.ErrInvalidEnumeration)
}

func TestNew_FixedPeriodAndDefaultResolution(t *testing.T) {
	req, err := request.New(newConfig(dwd.Mosmix(dwd.MosmixSmall), nil), request.Params{
		Parameters: []parameter.Spec{parameter.Name(dwd.TemperatureAirMean200)},
		Periods:    []string{"future", "historical"},
	})
	require.NoError(t, err)

	assert.Equal(t, taxonomy.ResolutionHourly, req.Resolution())
	assert.Equal(t, []taxonomy.Period{taxonomy.PeriodFuture}, req.Periods())
	assert.Nil(t, req.Window())
}

func TestNew_Tidy(t *testing.T) {
	off := &request.Settings{Tidy: false, Humanize: false, SIUnits: true}

	tests := []struct {
		name  string
		specs []parameter.Spec
		want  bool
	}{
		{"only datasets", []parameter.Spec{parameter.Name("climate_summary")}, false},
		{"no parameters", nil, false},
		{"mixed", []parameter.Spec{parameter.Name("climate_summary"), parameter.Name(dwd.SnowDepthNew)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := request.New(newConfig(dwd.Observation(), off), request.Params{
				Parameters: tt.specs,
				Resolution: "daily",
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.Tidy())
			assert.False(t, req.Humanize())
			assert.True(t, req.SIUnits())
		})
	}

	req, err := request.New(newConfig(dwd.Observation(), nil), request.Params{Resolution: "daily"})
	require.NoError(t, err)
	assert.True(t, req.Tidy())
}

func TestRequest_Equal(t *testing.T) {
	params := request.Params{
		Parameters: []parameter.Spec{parameter.Name(dwd.WindSpeed)},
		Resolution: "hourly",
		Periods:    []string{"recent"},
		StartDate:  "2020-01-01T00:00:00Z",
		EndDate:    "2020-01-02T00:00:00Z",
	}
	a, err := request.New(newConfig(dwd.Observation(), nil), params)
	require.NoError(t, err)
	b, err := request.New(newConfig(dwd.Observation(), nil), params)
	require.NoError(t, err)
	assert.True(t, a.Equal(b))

	params.EndDate = "2020-01-03T00:00:00Z"
	c, err := request.New(newConfig(dwd.Observation(), nil), params)
	require.NoError(t, err)
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))
}

func TestRequest_GettersReturnCopies(t *testing.T) {
	req, err := request.New(newConfig(dwd.Observation(), nil), request.Params{
		Parameters: []parameter.Spec{parameter.Name(dwd.WindSpeed)},
		Resolution: "hourly",
		StartDate:  "2020-01-01",
	})
	require.NoError(t, err)

	params := req.Parameters()
	params[0] = parameter.Entry{}
	assert.NotEqual(t, parameter.Entry{}, req.Parameters()[0])

	w := req.Window()
	w.Start = time.Time{}
	start, _ := req.StartDate()
	assert.False(t, start.IsZero())
}
