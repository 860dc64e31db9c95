package stations

import (
	"fmt"
	"strings"
)

// kilometersPer maps distance unit names to their length in kilometers.
var kilometersPer = map[string]float64{
	"km":             1,
	"kilometer":      1,
	"kilometers":     1,
	"kilometre":      1,
	"kilometres":     1,
	"m":              0.001,
	"meter":          0.001,
	"meters":         0.001,
	"metre":          0.001,
	"metres":         0.001,
	"mi":             1.609344,
	"mile":           1.609344,
	"miles":          1.609344,
	"nmi":            1.852,
	"nautical_mile":  1.852,
	"nautical_miles": 1.852,
	"ft":             0.0003048,
	"foot":           0.0003048,
	"feet":           0.0003048,
	"yd":             0.0009144,
	"yard":           0.0009144,
	"yards":          0.0009144,
}

// ToKilometers converts distance given in unit to kilometers. An empty unit
// means kilometers.
func ToKilometers(distance float64, unit string) (float64, error) {
	unit = strings.ToLower(strings.TrimSpace(unit))
	if unit == "" {
		unit = "km"
	}
	factor, ok := kilometersPer[unit]
	if !ok {
		return 0, fmt.Errorf("%w: unknown distance unit %q", ErrInvalidArgument, unit)
	}
	return distance * factor, nil
}
