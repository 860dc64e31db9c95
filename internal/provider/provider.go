// Package provider routes station lookups to the source serving each
// provider.
package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/stationkit/stationkit/internal/request"
	"github.com/stationkit/stationkit/internal/stations"
)

// ErrNoSource is returned when no source serves a request's provider.
var ErrNoSource = errors.New("no station source for provider")

// Mux is a stations.Source that dispatches on the request's provider name.
// It is configured before use and read-only afterwards.
type Mux struct {
	sources  map[string]stations.Source
	fallback stations.Source
}

// NewMux creates a Mux. fallback, when non-nil, serves every provider
// without a dedicated source.
func NewMux(fallback stations.Source) *Mux {
	return &Mux{sources: make(map[string]stations.Source), fallback: fallback}
}

// Handle routes provider to src.
func (m *Mux) Handle(provider string, src stations.Source) {
	m.sources[strings.ToLower(provider)] = src
}

// Source returns the source serving provider.
func (m *Mux) Source(provider string) (stations.Source, error) {
	if src, ok := m.sources[strings.ToLower(provider)]; ok {
		return src, nil
	}
	if m.fallback != nil {
		return m.fallback, nil
	}
	return nil, fmt.Errorf("%w %q", ErrNoSource, provider)
}

// Providers lists the providers with a dedicated source, sorted.
func (m *Mux) Providers() []string {
	names := make([]string, 0, len(m.sources))
	for name := range m.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stations implements stations.Source.
func (m *Mux) Stations(ctx context.Context, req *request.Request) ([]stations.Record, error) {
	src, err := m.Source(req.Provider())
	if err != nil {
		return nil, err
	}
	return src.Stations(ctx, req)
}
