package taxonomy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// DiscoverOptions narrows what Discover reports. Empty slices mean "all".
type DiscoverOptions struct {
	Resolutions []string
	Datasets    []string
	Flatten     bool
}

// Discovery lists parameters and their units. Flat discoveries are keyed
// resolution -> parameter; nested ones resolution -> dataset -> parameter.
type Discovery struct {
	Flat       bool                                   `json:"flat"`
	Parameters map[string]map[string]Unit             `json:"parameters,omitempty"`
	Datasets   map[string]map[string]map[string]Unit `json:"datasets,omitempty"`
}

// Discover reports the parameters of tax with origin and SI units.
func Discover(tax Taxonomy, opts DiscoverOptions, logger zerolog.Logger) (*Discovery, error) {
	resolutions, err := discoverResolutions(tax, opts.Resolutions)
	if err != nil {
		return nil, err
	}

	flatten := opts.Flatten || !tax.HasDatasets() || allUnique(tax, resolutions)
	if flatten {
		if len(opts.Datasets) > 0 {
			logger.Warn().
				Str("provider", tax.Provider()).
				Strs("datasets", opts.Datasets).
				Msg("dataset filter ignored when flattening")
		}
		return discoverFlat(tax, resolutions), nil
	}

	wanted := make(map[string]bool, len(opts.Datasets))
	for _, token := range opts.Datasets {
		name, ok := findDataset(tax, resolutions, token)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not a dataset of %s", ErrInvalidEnumeration, token, tax.Provider())
		}
		wanted[name] = true
	}

	d := &Discovery{Datasets: make(map[string]map[string]map[string]Unit, len(resolutions))}
	for _, res := range resolutions {
		byDataset := make(map[string]map[string]Unit)
		for _, ds := range tax.Datasets(res) {
			if len(wanted) > 0 && !wanted[ds.Name] {
				continue
			}
			params := make(map[string]Unit)
			for _, p := range tax.Parameters(res, ds) {
				u, _ := tax.UnitOf(res, ds, p)
				params[p.Name] = formatUnit(u)
			}
			byDataset[ds.Name] = params
		}
		d.Datasets[string(res)] = byDataset
	}
	return d, nil
}

func discoverFlat(tax Taxonomy, resolutions []Resolution) *Discovery {
	d := &Discovery{Flat: true, Parameters: make(map[string]map[string]Unit, len(resolutions))}
	for _, res := range resolutions {
		params := make(map[string]Unit)
		for _, p := range tax.Parameters(res, Node{}) {
			ds, ok := tax.DatasetForParameter(res, p)
			if !ok {
				continue
			}
			u, _ := tax.UnitOf(res, ds, p)
			params[p.Name] = formatUnit(u)
		}
		d.Parameters[string(res)] = params
	}
	return d
}

func discoverResolutions(tax Taxonomy, tokens []string) ([]Resolution, error) {
	if len(tokens) == 0 {
		return tax.Resolutions(), nil
	}
	out := make([]Resolution, 0, len(tokens))
	for _, token := range tokens {
		res, err := tax.LookupResolution(token)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

func allUnique(tax Taxonomy, resolutions []Resolution) bool {
	for _, res := range resolutions {
		if !tax.IsUniqueDataset(res) {
			return false
		}
	}
	return true
}

func findDataset(tax Taxonomy, resolutions []Resolution, token string) (string, bool) {
	for _, res := range resolutions {
		if ds, err := tax.LookupDataset(res, token); err == nil {
			return ds.Name, true
		}
	}
	return "", false
}

func formatUnit(u Unit) Unit {
	if u.Origin == "" {
		u.Origin = "-"
	}
	if u.SI == "" {
		u.SI = "-"
	}
	return u
}

// Registry maps provider names to their taxonomies.
type Registry struct {
	mu    sync.RWMutex
	items map[string]Taxonomy
}

// NewRegistry creates a registry holding the given taxonomies.
func NewRegistry(taxonomies ...Taxonomy) *Registry {
	r := &Registry{items: make(map[string]Taxonomy, len(taxonomies))}
	for _, t := range taxonomies {
		r.Register(t)
	}
	return r
}

// Register adds or replaces a taxonomy under its provider name.
func (r *Registry) Register(t Taxonomy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[normalize(t.Provider())] = t
}

// Lookup returns the taxonomy for a provider name.
func (r *Registry) Lookup(provider string) (Taxonomy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.items[normalize(provider)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidEnumeration, provider)
	}
	return t, nil
}

// Providers returns the registered provider names, sorted.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.items))
	for name := range r.items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
