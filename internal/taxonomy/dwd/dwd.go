// Package dwd defines the taxonomies of the Deutscher Wetterdienst open data
// products: the station observation network and the MOSMIX forecasts.
package dwd

import (
	"github.com/stationkit/stationkit/internal/taxonomy"
)

// Provider names as registered in a taxonomy.Registry.
const (
	ObservationProvider = "dwd_observation"
	MosmixLargeProvider = "dwd_mosmix_large"
	MosmixSmallProvider = "dwd_mosmix_small"
)

// Dataset names shared by several resolutions.
const (
	DatasetClimateSummary    = "climate_summary"
	DatasetPrecipitation     = "precipitation"
	DatasetPrecipitationMore = "precipitation_more"
	DatasetTemperatureAir    = "temperature_air"
	DatasetWind              = "wind"
	DatasetPressure          = "pressure"
	DatasetSun               = "sun"
	DatasetWaterEquivalent   = "water_equivalent"
)

// Parameter names referenced outside the taxonomy tables.
const (
	TemperatureAirMean200   = "temperature_air_mean_200"
	TemperatureAirMax200    = "temperature_air_max_200"
	TemperatureAirMin200    = "temperature_air_min_200"
	PrecipitationHeight     = "precipitation_height"
	WindSpeed               = "wind_speed"
	PressureAirSite         = "pressure_air_site"
	HumidityRelative        = "humidity"
	SunshineDuration        = "sunshine_duration"
	SnowDepth               = "snow_depth"
	TemperatureDewPoint200  = "temperature_dew_point_mean_200"
	WindDirection           = "wind_direction"
	CloudCoverTotal         = "cloud_cover_total"
	PrecipitationForm       = "precipitation_form"
	PressureAirSeaLevel     = "pressure_air_sea_level"
	WindGustMax             = "wind_gust_max"
	PressureVapor           = "pressure_vapor"
	TemperatureAirMin005    = "temperature_air_min_005"
	TemperatureAirMean005   = "temperature_air_mean_005"
	PrecipitationDuration   = "precipitation_duration"
	PrecipitationIndex      = "precipitation_index"
	SnowDepthNew            = "snow_depth_new"
	WaterEquivalentSnow     = "water_equivalent_snow_depth"
	PressureAirSiteReduced  = "pressure_air_site_reduced"
	PrecipitationLast1h     = "precipitation_height_significant_weather_last_1h"
	Visibility              = "visibility_range"
	ProbabilityPrecipLast1h = "probability_precipitation_height_gt_0_0mm_last_1h"
)

// Units as delivered and after SI conversion.
var (
	degC    = taxonomy.Unit{Origin: "°C", SI: "K"}
	kelvin  = taxonomy.Unit{Origin: "K", SI: "K"}
	mm      = taxonomy.Unit{Origin: "mm", SI: "kg / m ** 2"}
	kgm2    = taxonomy.Unit{Origin: "kg / m ** 2", SI: "kg / m ** 2"}
	ms      = taxonomy.Unit{Origin: "m / s", SI: "m / s"}
	degree  = taxonomy.Unit{Origin: "°", SI: "°"}
	hPa     = taxonomy.Unit{Origin: "hPa", SI: "Pa"}
	pascal  = taxonomy.Unit{Origin: "Pa", SI: "Pa"}
	percent = taxonomy.Unit{Origin: "%", SI: "%"}
	hours   = taxonomy.Unit{Origin: "h", SI: "s"}
	minutes = taxonomy.Unit{Origin: "min", SI: "s"}
	seconds = taxonomy.Unit{Origin: "s", SI: "s"}
	cm      = taxonomy.Unit{Origin: "cm", SI: "m"}
	meters  = taxonomy.Unit{Origin: "m", SI: "m"}
	eighths = taxonomy.Unit{Origin: "1/8", SI: "%"}
	plain   = taxonomy.Unit{}
)

func param(name string, u taxonomy.Unit) taxonomy.ParameterDef {
	return taxonomy.ParameterDef{Name: name, Origin: u.Origin, SI: u.SI}
}
