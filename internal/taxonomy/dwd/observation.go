package dwd

import (
	"github.com/stationkit/stationkit/internal/taxonomy"
)

// Observation returns the taxonomy of the DWD climate observation network.
// Datasets are split by resolution; plain parameter names found in several
// datasets are routed through an explicit mapping.
func Observation() *taxonomy.Catalog {
	return taxonomy.MustNewCatalog(taxonomy.CatalogConfig{
		Provider:    ObservationProvider,
		Kind:        taxonomy.KindObservation,
		HasDatasets: true,
		PeriodType:  taxonomy.PeriodMulti,
		Periods:     []taxonomy.Period{taxonomy.PeriodHistorical, taxonomy.PeriodRecent, taxonomy.PeriodNow},
		Resolutions: []taxonomy.ResolutionDef{
			{
				Resolution: taxonomy.ResolutionMinute1,
				Datasets: []taxonomy.DatasetDef{
					{
						Name: DatasetPrecipitation,
						Parameters: []taxonomy.ParameterDef{
							param(PrecipitationHeight, mm),
							param("precipitation_height_droplet", mm),
							param("precipitation_height_rocker", mm),
							param(PrecipitationIndex, plain),
						},
					},
				},
			},
			{
				Resolution: taxonomy.ResolutionMinute10,
				Datasets: []taxonomy.DatasetDef{
					{
						Name: DatasetTemperatureAir,
						Parameters: []taxonomy.ParameterDef{
							param(PressureAirSite, hPa),
							param(TemperatureAirMean200, degC),
							param(TemperatureAirMean005, degC),
							param(HumidityRelative, percent),
							param(TemperatureDewPoint200, degC),
						},
					},
					{
						Name: DatasetPrecipitation,
						Parameters: []taxonomy.ParameterDef{
							param(PrecipitationDuration, minutes),
							param(PrecipitationHeight, mm),
							param(PrecipitationIndex, plain),
						},
					},
					{
						Name: DatasetWind,
						Parameters: []taxonomy.ParameterDef{
							param(WindSpeed, ms),
							param(WindDirection, degree),
						},
					},
				},
			},
			{
				Resolution: taxonomy.ResolutionHourly,
				Datasets: []taxonomy.DatasetDef{
					{
						Name: DatasetTemperatureAir,
						Parameters: []taxonomy.ParameterDef{
							param(TemperatureAirMean200, degC),
							param(HumidityRelative, percent),
						},
					},
					{
						Name: DatasetPrecipitation,
						Parameters: []taxonomy.ParameterDef{
							param(PrecipitationHeight, mm),
							param("precipitation_indicator", plain),
							param(PrecipitationForm, plain),
						},
					},
					{
						Name: DatasetWind,
						Parameters: []taxonomy.ParameterDef{
							param(WindSpeed, ms),
							param(WindDirection, degree),
						},
					},
					{
						Name: DatasetPressure,
						Parameters: []taxonomy.ParameterDef{
							param(PressureAirSeaLevel, hPa),
							param(PressureAirSite, hPa),
						},
					},
					{
						Name: DatasetSun,
						Parameters: []taxonomy.ParameterDef{
							param(SunshineDuration, minutes),
						},
					},
				},
			},
			{
				Resolution: taxonomy.ResolutionSubdaily,
				Datasets: []taxonomy.DatasetDef{
					{
						Name: DatasetTemperatureAir,
						Parameters: []taxonomy.ParameterDef{
							param(TemperatureAirMean200, degC),
							param(HumidityRelative, percent),
						},
					},
					{
						Name: DatasetPressure,
						Parameters: []taxonomy.ParameterDef{
							param(PressureAirSite, hPa),
						},
					},
				},
			},
			{
				Resolution: taxonomy.ResolutionDaily,
				Datasets: []taxonomy.DatasetDef{
					{
						Name: DatasetClimateSummary,
						Parameters: []taxonomy.ParameterDef{
							param(WindGustMax, ms),
							param(WindSpeed, ms),
							param(PrecipitationHeight, mm),
							param(PrecipitationForm, plain),
							param(SunshineDuration, hours),
							param(SnowDepth, cm),
							param(CloudCoverTotal, eighths),
							param(PressureVapor, hPa),
							param(PressureAirSite, hPa),
							param(TemperatureAirMean200, degC),
							param(HumidityRelative, percent),
							param(TemperatureAirMax200, degC),
							param(TemperatureAirMin200, degC),
							param(TemperatureAirMin005, degC),
						},
					},
					{
						Name: DatasetPrecipitationMore,
						Parameters: []taxonomy.ParameterDef{
							param(PrecipitationHeight, mm),
							param(PrecipitationForm, plain),
							param(SnowDepth, cm),
							param(SnowDepthNew, cm),
						},
					},
					{
						Name: DatasetWaterEquivalent,
						Parameters: []taxonomy.ParameterDef{
							param("snow_depth_excelled", cm),
							param(SnowDepth, cm),
							param(WaterEquivalentSnow, mm),
						},
					},
				},
				ParameterDatasets: map[string]string{
					PrecipitationHeight: DatasetClimateSummary,
					PrecipitationForm:   DatasetClimateSummary,
					SnowDepth:           DatasetClimateSummary,
				},
			},
			{
				Resolution: taxonomy.ResolutionMonthly,
				Datasets: []taxonomy.DatasetDef{
					{
						Name: DatasetClimateSummary,
						Parameters: []taxonomy.ParameterDef{
							param(CloudCoverTotal, eighths),
							param(TemperatureAirMean200, degC),
							param(TemperatureAirMax200, degC),
							param(TemperatureAirMin200, degC),
							param(WindGustMax, ms),
							param(SunshineDuration, hours),
							param(WindSpeed, ms),
							param(PrecipitationHeight, mm),
						},
					},
					{
						Name: DatasetPrecipitationMore,
						Parameters: []taxonomy.ParameterDef{
							param(SnowDepthNew, cm),
							param(PrecipitationHeight, mm),
						},
					},
				},
				ParameterDatasets: map[string]string{
					PrecipitationHeight: DatasetClimateSummary,
				},
			},
			{
				Resolution: taxonomy.ResolutionAnnual,
				Datasets: []taxonomy.DatasetDef{
					{
						Name: DatasetClimateSummary,
						Parameters: []taxonomy.ParameterDef{
							param(CloudCoverTotal, eighths),
							param(TemperatureAirMean200, degC),
							param(TemperatureAirMax200, degC),
							param(TemperatureAirMin200, degC),
							param(SunshineDuration, hours),
							param(PrecipitationHeight, mm),
						},
					},
				},
			},
		},
	})
}
