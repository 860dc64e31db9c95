package stations

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// EarthRadiusKM is the mean Earth radius used for station distances.
const EarthRadiusKM = 6371.0

// Point returns the orb point for a latitude and longitude in degrees.
func Point(latitude, longitude float64) orb.Point {
	return orb.Point{longitude, latitude}
}

// Distance returns the great-circle distance between a and b in kilometers.
func Distance(a, b orb.Point) float64 {
	return geo.DistanceHaversine(a, b) / geo.EarthRadius * EarthRadiusKM
}

// rankByDistance returns the located stations ordered by distance to query,
// each with Distance set. Ties keep source order.
func rankByDistance(stations []Station, query orb.Point) []Station {
	ranked := make([]Station, 0, len(stations))
	for _, s := range stations {
		if !s.HasLocation() {
			continue
		}
		d := Distance(query, Point(s.Latitude, s.Longitude))
		s.Distance = &d
		ranked = append(ranked, s)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return *ranked[i].Distance < *ranked[j].Distance
	})
	return ranked
}
