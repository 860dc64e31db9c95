package parameter_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stationkit/stationkit/internal/parameter"
	"github.com/stationkit/stationkit/internal/taxonomy"
	"github.com/stationkit/stationkit/internal/taxonomy/dwd"
)

func TestResolve_Observation(t *testing.T) {
	r := parameter.NewResolver(dwd.Observation(), zerolog.New(io.Discard))

	tests := []struct {
		name string
		spec parameter.Spec
		want parameter.Entry
	}{
		{
			name: "whole dataset",
			spec: parameter.Name("Climate_Summary"),
			want: parameter.Entry{
				Parameter: taxonomy.DatasetNode(dwd.DatasetClimateSummary),
				Dataset:   taxonomy.DatasetNode(dwd.DatasetClimateSummary),
			},
		},
		{
			name: "bare parameter uses mapping",
			spec: parameter.Name("PRECIPITATION_HEIGHT"),
			want: parameter.Entry{
				Parameter: taxonomy.ParameterNode(dwd.PrecipitationHeight, dwd.DatasetClimateSummary),
				Dataset:   taxonomy.DatasetNode(dwd.DatasetClimateSummary),
			},
		},
		{
			name: "explicit dataset wins over mapping",
			spec: parameter.Pair("precipitation_height", "precipitation_more"),
			want: parameter.Entry{
				Parameter: taxonomy.ParameterNode(dwd.PrecipitationHeight, dwd.DatasetPrecipitationMore),
				Dataset:   taxonomy.DatasetNode(dwd.DatasetPrecipitationMore),
			},
		},
		{
			name: "textual pair",
			spec: parameter.ParseSpec("snow_depth_new:precipitation_more"),
			want: parameter.Entry{
				Parameter: taxonomy.ParameterNode(dwd.SnowDepthNew, dwd.DatasetPrecipitationMore),
				Dataset:   taxonomy.DatasetNode(dwd.DatasetPrecipitationMore),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Resolve([]parameter.Spec{tt.spec}, taxonomy.ResolutionDaily)
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0])
		})
	}
}

func TestResolve_DropsAndKeepsOrder(t *testing.T) {
	var buf bytes.Buffer
	r := parameter.NewResolver(dwd.Observation(), zerolog.New(&buf))

	specs := []parameter.Spec{
		parameter.Name(dwd.TemperatureAirMean200),
		parameter.Name("not_a_parameter"),
		{"a", "b", "c"},
		parameter.Pair(dwd.SnowDepthNew, "climate_summary"),
		parameter.Pair("not_a_parameter", "no_such_dataset"),
		parameter.Name(dwd.TemperatureAirMean200),
	}

	res := r.ResolveDetailed(specs, taxonomy.ResolutionDaily)
	require.Len(t, res.Entries, 2)
	assert.Equal(t, res.Entries[0], res.Entries[1])
	assert.Equal(t, dwd.DatasetClimateSummary, res.Entries[0].Dataset.Name)

	require.Len(t, res.Rejections, 4)
	assert.ErrorIs(t, res.Rejections[0].Err, parameter.ErrUnresolvable)
	assert.ErrorIs(t, res.Rejections[1].Err, parameter.ErrMalformedSpec)
	assert.ErrorIs(t, res.Rejections[2].Err, parameter.ErrUnresolvable)
	assert.ErrorIs(t, res.Rejections[3].Err, parameter.ErrUnresolvable)

	assert.Contains(t, buf.String(), "parameter dropped")
	assert.Contains(t, buf.String(), "not_a_parameter")
}

func TestResolve_UnknownDatasetToken(t *testing.T) {
	t.Run("mapping supplies the dataset", func(t *testing.T) {
		r := parameter.NewResolver(dwd.Observation(), zerolog.Nop())

		res := r.ResolveDetailed([]parameter.Spec{
			parameter.Pair(dwd.PrecipitationHeight, "bogus"),
			parameter.Pair(dwd.WindSpeed, "no_such_dataset"),
		}, taxonomy.ResolutionDaily)

		assert.Empty(t, res.Rejections)
		assert.Equal(t, []parameter.Entry{
			{
				Parameter: taxonomy.ParameterNode(dwd.PrecipitationHeight, dwd.DatasetClimateSummary),
				Dataset:   taxonomy.DatasetNode(dwd.DatasetClimateSummary),
			},
			{
				Parameter: taxonomy.ParameterNode(dwd.WindSpeed, dwd.DatasetClimateSummary),
				Dataset:   taxonomy.DatasetNode(dwd.DatasetClimateSummary),
			},
		}, res.Entries)
	})

	t.Run("unique dataset overrides the token", func(t *testing.T) {
		tax := dwd.Mosmix(dwd.MosmixSmall)
		r := parameter.NewResolver(tax, zerolog.Nop())

		res := r.ResolveDetailed([]parameter.Spec{
			parameter.Pair(dwd.TemperatureAirMean200, "bogus"),
		}, taxonomy.ResolutionHourly)

		assert.Empty(t, res.Rejections)
		require.Len(t, res.Entries, 1)
		assert.Equal(t, dwd.TemperatureAirMean200, res.Entries[0].Parameter.Name)
		assert.Equal(t, tax.Datasets(taxonomy.ResolutionHourly)[0], res.Entries[0].Dataset)
		assert.Equal(t, "small", res.Entries[0].Dataset.Name)
	})
}

func TestResolve_Empty(t *testing.T) {
	r := parameter.NewResolver(dwd.Observation(), zerolog.Nop())
	got := r.Resolve(nil, taxonomy.ResolutionDaily)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestResolve_UniqueDataset(t *testing.T) {
	tax := dwd.Mosmix(dwd.MosmixLarge)
	r := parameter.NewResolver(tax, zerolog.Nop())
	single := tax.Datasets(taxonomy.ResolutionHourly)[0]

	specs := []parameter.Spec{
		parameter.Name(dwd.TemperatureAirMean200),
		parameter.Pair(dwd.WindSpeed, "large"),
		parameter.Name(dwd.ProbabilityPrecipLast1h),
	}
	got := r.Resolve(specs, taxonomy.ResolutionHourly)
	require.Len(t, got, 3)
	for _, e := range got {
		assert.Equal(t, single, e.Dataset)
		assert.False(t, e.IsDataset())
	}

	whole := r.Resolve([]parameter.Spec{parameter.Name("LARGE")}, taxonomy.ResolutionHourly)
	require.Len(t, whole, 1)
	assert.True(t, whole[0].IsDataset())
}

func TestResolve_Deterministic(t *testing.T) {
	r := parameter.NewResolver(dwd.Observation(), zerolog.Nop())
	specs := []parameter.Spec{
		parameter.Name(dwd.WindSpeed),
		parameter.Name(dwd.DatasetWind),
		parameter.Name(dwd.PrecipitationHeight),
	}
	first := r.Resolve(specs, taxonomy.ResolutionHourly)
	second := r.Resolve(specs, taxonomy.ResolutionHourly)
	assert.Equal(t, first, second)
	assert.Len(t, first, 3)
}

func TestEntry_String(t *testing.T) {
	e := parameter.Entry{
		Parameter: taxonomy.ParameterNode("wind_speed", "wind"),
		Dataset:   taxonomy.DatasetNode("wind"),
	}
	assert.Equal(t, "wind_speed:wind", e.String())
	assert.Equal(t, "wind", parameter.Entry{Parameter: e.Dataset, Dataset: e.Dataset}.String())
}
