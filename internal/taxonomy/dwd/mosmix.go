package dwd

import (
	"github.com/stationkit/stationkit/internal/taxonomy"
)

// MosmixType selects the MOSMIX product; it also names the product's single dataset.
type MosmixType string

const (
	MosmixSmall MosmixType = "small"
	MosmixLarge MosmixType = "large"
)

var mosmixSmallParameters = []taxonomy.ParameterDef{
	param(PressureAirSiteReduced, pascal),
	param(TemperatureAirMean200, kelvin),
	param("temperature_air_max_200", kelvin),
	param("temperature_air_min_200", kelvin),
	param(TemperatureDewPoint200, kelvin),
	param(WindDirection, degree),
	param(WindSpeed, ms),
	param("wind_gust_max_last_1h", ms),
	param(PrecipitationLast1h, kgm2),
	param(CloudCoverTotal, percent),
	param(SunshineDuration, seconds),
	param(Visibility, meters),
}

var mosmixLargeExtra = []taxonomy.ParameterDef{
	param("temperature_air_mean_005", kelvin),
	param("precipitation_height_last_6h", kgm2),
	param("precipitation_height_last_24h", kgm2),
	param(ProbabilityPrecipLast1h, percent),
	param("cloud_cover_below_500_ft", percent),
	param("radiation_global", taxonomy.Unit{Origin: "kJ / m ** 2", SI: "J / m ** 2"}),
	param("error_absolute_temperature_air_mean_200", kelvin),
}

// Mosmix returns the taxonomy of a MOSMIX forecast product. Every parameter
// lives in the product's single dataset and only the future period exists.
func Mosmix(t MosmixType) *taxonomy.Catalog {
	provider := MosmixSmallProvider
	params := append([]taxonomy.ParameterDef(nil), mosmixSmallParameters...)
	if t == MosmixLarge {
		provider = MosmixLargeProvider
		params = append(params, mosmixLargeExtra...)
	}

	return taxonomy.MustNewCatalog(taxonomy.CatalogConfig{
		Provider:    provider,
		Kind:        taxonomy.KindForecast,
		HasDatasets: true,
		PeriodType:  taxonomy.PeriodFixed,
		Periods:     []taxonomy.Period{taxonomy.PeriodFuture},
		Resolutions: []taxonomy.ResolutionDef{
			{
				Resolution: taxonomy.ResolutionHourly,
				Unique:     true,
				Datasets: []taxonomy.DatasetDef{
					{Name: string(t), Parameters: params},
				},
			},
		},
	})
}

// Registry returns a registry with every DWD taxonomy.
func Registry() *taxonomy.Registry {
	return taxonomy.NewRegistry(Observation(), Mosmix(MosmixSmall), Mosmix(MosmixLarge))
}
