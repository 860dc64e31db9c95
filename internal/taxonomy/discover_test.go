package taxonomy_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stationkit/stationkit/internal/taxonomy"
	"github.com/stationkit/stationkit/internal/taxonomy/dwd"
)

func TestDiscover_Nested(t *testing.T) {
	d, err := taxonomy.Discover(dwd.Observation(), taxonomy.DiscoverOptions{
		Resolutions: []string{"daily"},
		Datasets:    []string{"precipitation_more"},
	}, zerolog.New(io.Discard))
	require.NoError(t, err)

	assert.False(t, d.Flat)
	require.Contains(t, d.Datasets, "daily")
	daily := d.Datasets["daily"]
	assert.Len(t, daily, 1)
	assert.Equal(t, taxonomy.Unit{Origin: "cm", SI: "m"}, daily["precipitation_more"][dwd.SnowDepthNew])
	assert.Equal(t, taxonomy.Unit{Origin: "-", SI: "-"}, daily["precipitation_more"][dwd.PrecipitationForm])
}

func TestDiscover_Flatten(t *testing.T) {
	d, err := taxonomy.Discover(dwd.Observation(), taxonomy.DiscoverOptions{
		Resolutions: []string{"daily"},
		Flatten:     true,
	}, zerolog.New(io.Discard))
	require.NoError(t, err)

	assert.True(t, d.Flat)
	assert.Equal(t, taxonomy.Unit{Origin: "°C", SI: "K"}, d.Parameters["daily"][dwd.TemperatureAirMean200])
	// Ambiguous names report the unit of the mapped dataset.
	assert.Equal(t, taxonomy.Unit{Origin: "cm", SI: "m"}, d.Parameters["daily"][dwd.SnowDepth])
}

func TestDiscover_UniqueForcesFlatten(t *testing.T) {
	var buf bytes.Buffer
	d, err := taxonomy.Discover(dwd.Mosmix(dwd.MosmixSmall), taxonomy.DiscoverOptions{
		Datasets: []string{"small"},
	}, zerolog.New(&buf))
	require.NoError(t, err)

	assert.True(t, d.Flat)
	assert.Contains(t, d.Parameters["hourly"], dwd.TemperatureAirMean200)
	assert.Contains(t, buf.String(), "dataset filter ignored")
}

func TestDiscover_UnknownTokens(t *testing.T) {
	_, err := taxonomy.Discover(dwd.Observation(), taxonomy.DiscoverOptions{
		Resolutions: []string{"fortnightly"},
	}, zerolog.Nop())
	assert.ErrorIs(t, err, taxonomy.ErrInvalidEnumeration)

	_, err = taxonomy.Discover(dwd.Observation(), taxonomy.DiscoverOptions{
		Resolutions: []string{"daily"},
		Datasets:    []string{"wind"},
	}, zerolog.Nop())
	assert.ErrorIs(t, err, taxonomy.ErrInvalidEnumeration)
}

func TestRegistry(t *testing.T) {
	r := dwd.Registry()

	assert.Equal(t, []string{dwd.MosmixLargeProvider, dwd.MosmixSmallProvider, dwd.ObservationProvider}, r.Providers())

	tax, err := r.Lookup("DWD_Observation")
	require.NoError(t, err)
	assert.Equal(t, dwd.ObservationProvider, tax.Provider())

	_, err = r.Lookup("noaa_ghcn")
	assert.ErrorIs(t, err, taxonomy.ErrInvalidEnumeration)
}

func TestResolution_Frequency(t *testing.T) {
	assert.True(t, taxonomy.ResolutionMinute10.IsHighFrequency())
	assert.False(t, taxonomy.ResolutionHourly.IsHighFrequency())
	assert.Equal(t, "1h0m0s", taxonomy.ResolutionHourly.Frequency().String())
	assert.Less(t, taxonomy.PeriodHistorical.Order(), taxonomy.PeriodNow.Order())
}
