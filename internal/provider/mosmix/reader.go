// Package mosmix reads station lists from MOSMIX KML forecast files.
package mosmix

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/stationkit/stationkit/internal/stations"
)

// ErrStop ends Read early without error when returned from a callback.
var ErrStop = errors.New("stop reading placemarks")

// Placemark is one forecast location of a KML file.
type Placemark struct {
	ID        string
	Name      string
	Longitude float64
	Latitude  float64
	Height    float64
}

// Record converts the placemark into a station row.
func (p Placemark) Record() stations.Record {
	return stations.Record{
		stations.ColumnStationID: p.ID,
		stations.ColumnName:      p.Name,
		stations.ColumnLatitude:  p.Latitude,
		stations.ColumnLongitude: p.Longitude,
		stations.ColumnHeight:    p.Height,
	}
}

type placemarkXML struct {
	Name        string `xml:"name"`
	Description string `xml:"description"`
	Coordinates string `xml:"Point>coordinates"`
}

// Read streams the placemarks of a KML document to fn, one at a time, so
// whole forecast files never sit in memory. It returns the number of
// placemarks delivered.
func Read(ctx context.Context, r io.Reader, fn func(Placemark) error) (int, error) {
	dec := xml.NewDecoder(r)
	count := 0
	for {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return count, nil
		}
		if err != nil {
			return count, fmt.Errorf("read kml: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "Placemark" {
			continue
		}

		var raw placemarkXML
		if err := dec.DecodeElement(&raw, &start); err != nil {
			return count, fmt.Errorf("decode placemark %d: %w", count+1, err)
		}
		pm, err := raw.placemark()
		if err != nil {
			return count, err
		}
		if err := fn(pm); err != nil {
			if errors.Is(err, ErrStop) {
				return count + 1, nil
			}
			return count, err
		}
		count++
	}
}

// coordinates are "lon,lat,height" with height optional.
func (p placemarkXML) placemark() (Placemark, error) {
	pm := Placemark{
		ID:   strings.TrimSpace(p.Name),
		Name: strings.TrimSpace(p.Description),
	}
	parts := strings.Split(strings.TrimSpace(p.Coordinates), ",")
	if len(parts) < 2 {
		return Placemark{}, fmt.Errorf("placemark %s: malformed coordinates %q", pm.ID, p.Coordinates)
	}
	values := make([]float64, len(parts))
	for i, s := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return Placemark{}, fmt.Errorf("placemark %s: coordinate %q: %w", pm.ID, s, err)
		}
		values[i] = v
	}
	pm.Longitude, pm.Latitude = values[0], values[1]
	if len(values) > 2 {
		pm.Height = values[2]
	}
	return pm, nil
}
