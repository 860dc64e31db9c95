package models_test

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stationkit/stationkit/internal/api/models"
	"github.com/stationkit/stationkit/internal/parameter"
	"github.com/stationkit/stationkit/internal/request"
	"github.com/stationkit/stationkit/internal/stations"
	"github.com/stationkit/stationkit/internal/taxonomy/dwd"
)

func TestNewStation_NullsUnknownValues(t *testing.T) {
	st := models.NewStation(stations.Station{
		ID:        "99999",
		Height:    math.NaN(),
		Latitude:  math.NaN(),
		Longitude: 13.4,
		FromDate:  time.Date(1948, 1, 1, 0, 0, 0, 0, time.UTC),
		Name:      "Nowhere",
	})

	data, err := json.Marshal(st)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Nil(t, body["height"])
	assert.Nil(t, body["latitude"])
	assert.Nil(t, body["to_date"])
	assert.Equal(t, 13.4, body["longitude"])
	assert.Equal(t, "1948-01-01T00:00:00Z", body["from_date"])
	assert.NotContains(t, body, "distance")
}

func TestNewStations_NeverNil(t *testing.T) {
	data, err := json.Marshal(models.NewStations(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestNewRequestSummary(t *testing.T) {
	req, err := request.New(request.Config{Taxonomy: dwd.Observation(), Logger: zerolog.Nop()}, request.Params{
		Parameters: []parameter.Spec{parameter.Name(dwd.TemperatureAirMean200)},
		Resolution: "daily",
		StartDate:  "2020-01-01",
		EndDate:    "2020-12-31",
	})
	require.NoError(t, err)

	s := models.NewRequestSummary(req)
	assert.Equal(t, dwd.ObservationProvider, s.Provider)
	assert.Equal(t, "daily", s.Resolution)
	require.Len(t, s.Parameters, 1)
	assert.Contains(t, s.Parameters[0], dwd.TemperatureAirMean200)
	require.NotNil(t, s.StartDate)
	assert.Equal(t, 2020, s.StartDate.Time().Year())
}

func TestTimestamp_RoundTrip(t *testing.T) {
	var ts models.Timestamp
	require.NoError(t, json.Unmarshal([]byte(`"2021-06-01T12:00:00+02:00"`), &ts))

	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2021-06-01T10:00:00Z"`, string(data))

	assert.Error(t, json.Unmarshal([]byte(`1`), &ts))
}
