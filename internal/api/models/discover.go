package models

import "github.com/stationkit/stationkit/internal/taxonomy"

// ProviderList is the body of GET /v1/taxonomies.
type ProviderList struct {
	Providers []string `json:"providers"`
}

// Discovery is the body of GET /v1/taxonomies/{provider}/discover.
type Discovery struct {
	Provider string `json:"provider"`
	*taxonomy.Discovery
}

// NewDiscovery wraps d for provider.
func NewDiscovery(provider string, d *taxonomy.Discovery) Discovery {
	return Discovery{Provider: provider, Discovery: d}
}
