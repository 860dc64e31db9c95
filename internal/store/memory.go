package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/stationkit/stationkit/internal/request"
	"github.com/stationkit/stationkit/internal/stations"
)

// MemoryRepository keeps catalogs in process memory.
type MemoryRepository struct {
	mu       sync.RWMutex
	catalogs map[Key][]stations.Station
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{catalogs: make(map[Key][]stations.Station)}
}

// Stations returns the catalog stored for the request as raw rows.
func (r *MemoryRepository) Stations(_ context.Context, req *request.Request) ([]stations.Record, error) {
	key := KeyFor(req)

	r.mu.RLock()
	defer r.mu.RUnlock()

	catalog, ok := r.catalogs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCatalogNotFound, key)
	}
	out := make([]stations.Record, len(catalog))
	for i, st := range catalog {
		out[i] = st.Record()
	}
	return out, nil
}

// ReplaceAll stores a copy of list under key.
func (r *MemoryRepository) ReplaceAll(_ context.Context, key Key, list []stations.Station) error {
	cp := make([]stations.Station, len(list))
	copy(cp, list)
	for i := range cp {
		cp[i].Distance = nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.catalogs[key] = cp
	return nil
}

// Count returns the number of stations stored under key.
func (r *MemoryRepository) Count(_ context.Context, key Key) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	catalog, ok := r.catalogs[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrCatalogNotFound, key)
	}
	return len(catalog), nil
}

var _ Repository = (*MemoryRepository)(nil)
