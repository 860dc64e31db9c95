// Package store persists station catalogs so that queries do not have to
// reach the upstream services.
package store

import (
	"context"
	"errors"

	"github.com/stationkit/stationkit/internal/request"
	"github.com/stationkit/stationkit/internal/stations"
)

// ErrCatalogNotFound is returned when no catalog was stored for a key.
var ErrCatalogNotFound = errors.New("station catalog not found")

// Key identifies one stored catalog.
type Key struct {
	Provider   string `json:"provider"`
	Resolution string `json:"resolution"`
}

// KeyFor returns the catalog key of a request.
func KeyFor(req *request.Request) Key {
	return Key{Provider: req.Provider(), Resolution: string(req.Resolution())}
}

func (k Key) String() string {
	return k.Provider + "/" + k.Resolution
}

// Repository stores station catalogs. Every Repository is a stations.Source
// serving the catalog of the request's provider and resolution.
type Repository interface {
	stations.Source

	// ReplaceAll swaps the catalog stored under key for stations.
	ReplaceAll(ctx context.Context, key Key, stations []stations.Station) error

	// Count returns the number of stations stored under key.
	Count(ctx context.Context, key Key) (int, error)
}
