// Package worker runs background jobs that keep the stored station
// catalogs in sync with their upstream sources.
package worker

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stationkit/stationkit/internal/taxonomy/dwd"
)

// ErrInvalidCatalog is returned for malformed catalog names.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Catalog names one station catalog by provider and resolution. An empty
// resolution stands for the provider's only resolution.
type Catalog struct {
	Provider   string
	Resolution string
}

// ParseCatalog parses "provider/resolution" or a bare "provider".
func ParseCatalog(s string) (Catalog, error) {
	provider, resolution, _ := strings.Cut(strings.TrimSpace(s), "/")
	provider, resolution = strings.TrimSpace(provider), strings.TrimSpace(resolution)
	if provider == "" {
		return Catalog{}, fmt.Errorf("%w: %q has no provider", ErrInvalidCatalog, s)
	}
	return Catalog{Provider: provider, Resolution: resolution}, nil
}

// ParseCatalogs parses every name in names.
func ParseCatalogs(names []string) ([]Catalog, error) {
	out := make([]Catalog, 0, len(names))
	for _, n := range names {
		c, err := ParseCatalog(n)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (c Catalog) String() string {
	if c.Resolution == "" {
		return c.Provider
	}
	return c.Provider + "/" + c.Resolution
}

// SyncConfig holds configuration for the catalog sync job.
type SyncConfig struct {
	// Catalogs are synced on every run.
	// If empty, uses DefaultCatalogs.
	Catalogs []Catalog

	// Concurrency is the number of catalogs synced at once.
	// Default: 2
	Concurrency int

	// Timeout bounds the sync of one catalog.
	// Default: 2 minutes
	Timeout time.Duration
}

// DefaultSyncConfig returns the default sync configuration.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		Catalogs:    DefaultCatalogs(),
		Concurrency: 2,
		Timeout:     2 * time.Minute,
	}
}

// DefaultCatalogs returns the DWD catalogs most queries hit.
func DefaultCatalogs() []Catalog {
	return []Catalog{
		{Provider: dwd.ObservationProvider, Resolution: "daily"},
		{Provider: dwd.ObservationProvider, Resolution: "hourly"},
		{Provider: dwd.MosmixLargeProvider},
	}
}
