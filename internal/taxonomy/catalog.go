package taxonomy

import (
	"errors"
	"fmt"
	"strings"
)

// ParameterDef declares one parameter of a dataset and its units.
type ParameterDef struct {
	Name   string
	Origin string
	SI     string
}

// DatasetDef declares a dataset and the parameters it contains.
type DatasetDef struct {
	Name       string
	Parameters []ParameterDef
}

// ResolutionDef declares the datasets available at one resolution.
type ResolutionDef struct {
	Resolution Resolution

	// Unique marks a resolution whose parameters all live in its single dataset.
	Unique bool

	Datasets []DatasetDef

	// ParameterDatasets picks the dataset a plain parameter name is taken from
	// when more than one dataset carries it.
	ParameterDatasets map[string]string
}

// CatalogConfig describes a provider taxonomy.
type CatalogConfig struct {
	Provider    string
	Kind        Kind
	HasDatasets bool
	PeriodType  PeriodType
	Periods     []Period
	Resolutions []ResolutionDef
}

type resolutionEntry struct {
	unique       bool
	datasets     []Node
	datasetIndex map[string]Node
	flat         []Node
	flatIndex    map[string]Node
	scoped       map[string][]Node
	scopedIndex  map[string]map[string]Node
	paramDataset map[string]Node
	units        map[string]Unit
}

// Catalog is an immutable Taxonomy built once from a CatalogConfig. All
// lookups are case-insensitive exact matches against prebuilt tables.
type Catalog struct {
	provider    string
	kind        Kind
	hasDatasets bool
	periodType  PeriodType
	periods     []Period
	periodIndex map[string]Period
	resolutions []Resolution
	resIndex    map[string]Resolution
	entries     map[Resolution]*resolutionEntry
}

var _ Taxonomy = (*Catalog)(nil)

// NewCatalog validates cfg and builds the lookup tables.
func NewCatalog(cfg CatalogConfig) (*Catalog, error) {
	if strings.TrimSpace(cfg.Provider) == "" {
		return nil, errors.New("taxonomy: provider name is required")
	}
	if len(cfg.Resolutions) == 0 {
		return nil, fmt.Errorf("taxonomy %s: at least one resolution is required", cfg.Provider)
	}

	c := &Catalog{
		provider:    cfg.Provider,
		kind:        cfg.Kind,
		hasDatasets: cfg.HasDatasets,
		periodType:  cfg.PeriodType,
		periodIndex: make(map[string]Period, len(cfg.Periods)),
		resIndex:    make(map[string]Resolution, len(cfg.Resolutions)),
		entries:     make(map[Resolution]*resolutionEntry, len(cfg.Resolutions)),
	}

	for _, p := range cfg.Periods {
		c.periods = append(c.periods, p)
		c.periodIndex[normalize(string(p))] = p
	}

	for _, def := range cfg.Resolutions {
		key := normalize(string(def.Resolution))
		if _, dup := c.resIndex[key]; dup {
			return nil, fmt.Errorf("taxonomy %s: duplicate resolution %q", cfg.Provider, def.Resolution)
		}
		entry, err := buildResolution(cfg, def)
		if err != nil {
			return nil, err
		}
		c.resolutions = append(c.resolutions, def.Resolution)
		c.resIndex[key] = def.Resolution
		c.entries[def.Resolution] = entry
	}

	return c, nil
}

// MustNewCatalog is NewCatalog for static provider definitions; it panics on error.
func MustNewCatalog(cfg CatalogConfig) *Catalog {
	c, err := NewCatalog(cfg)
	if err != nil {
		panic(err)
	}
	return c
}

func buildResolution(cfg CatalogConfig, def ResolutionDef) (*resolutionEntry, error) {
	unique := def.Unique || !cfg.HasDatasets
	if len(def.Datasets) == 0 {
		return nil, fmt.Errorf("taxonomy %s: resolution %s has no datasets", cfg.Provider, def.Resolution)
	}
	if unique && len(def.Datasets) != 1 {
		return nil, fmt.Errorf("taxonomy %s: unique resolution %s must have exactly one dataset", cfg.Provider, def.Resolution)
	}

	e := &resolutionEntry{
		unique:       unique,
		datasetIndex: make(map[string]Node),
		flatIndex:    make(map[string]Node),
		scoped:       make(map[string][]Node),
		scopedIndex:  make(map[string]map[string]Node),
		paramDataset: make(map[string]Node),
		units:        make(map[string]Unit),
	}

	owners := make(map[string][]Node)

	for _, ds := range def.Datasets {
		dsName := normalize(ds.Name)
		if dsName == "" {
			return nil, fmt.Errorf("taxonomy %s: empty dataset name at %s", cfg.Provider, def.Resolution)
		}
		if _, dup := e.datasetIndex[dsName]; dup {
			return nil, fmt.Errorf("taxonomy %s: duplicate dataset %q at %s", cfg.Provider, ds.Name, def.Resolution)
		}
		dsNode := DatasetNode(dsName)
		e.datasets = append(e.datasets, dsNode)
		e.datasetIndex[dsName] = dsNode
		e.scopedIndex[dsName] = make(map[string]Node, len(ds.Parameters))

		for _, p := range ds.Parameters {
			pName := normalize(p.Name)
			if _, dup := e.scopedIndex[dsName][pName]; dup {
				return nil, fmt.Errorf("taxonomy %s: duplicate parameter %q in %s/%s", cfg.Provider, p.Name, def.Resolution, dsName)
			}
			scoped := ParameterNode(pName, dsName)
			e.scoped[dsName] = append(e.scoped[dsName], scoped)
			e.scopedIndex[dsName][pName] = scoped
			e.units[unitKey(dsName, pName)] = Unit{Origin: p.Origin, SI: p.SI}

			if _, seen := e.flatIndex[pName]; !seen {
				flat := ParameterNode(pName, "")
				e.flat = append(e.flat, flat)
				e.flatIndex[pName] = flat
			}
			owners[pName] = append(owners[pName], dsNode)
		}
	}

	for name, target := range def.ParameterDatasets {
		pName, dsName := normalize(name), normalize(target)
		if _, ok := e.scopedIndex[dsName][pName]; !ok {
			return nil, fmt.Errorf("taxonomy %s: mapping %s -> %s at %s points outside the dataset", cfg.Provider, name, target, def.Resolution)
		}
		e.paramDataset[pName] = e.datasetIndex[dsName]
	}

	for pName, ds := range owners {
		if _, mapped := e.paramDataset[pName]; mapped {
			continue
		}
		if len(ds) > 1 {
			return nil, fmt.Errorf("taxonomy %s: parameter %q at %s is in %d datasets but has no mapping", cfg.Provider, pName, def.Resolution, len(ds))
		}
		e.paramDataset[pName] = ds[0]
	}

	return e, nil
}

func normalize(token string) string {
	return strings.ToLower(strings.TrimSpace(token))
}

func unitKey(dataset, parameter string) string {
	return dataset + "/" + parameter
}

func (c *Catalog) Provider() string       { return c.provider }
func (c *Catalog) Kind() Kind             { return c.kind }
func (c *Catalog) HasDatasets() bool      { return c.hasDatasets }
func (c *Catalog) PeriodType() PeriodType { return c.periodType }

func (c *Catalog) Periods() []Period {
	return append([]Period(nil), c.periods...)
}

func (c *Catalog) Resolutions() []Resolution {
	return append([]Resolution(nil), c.resolutions...)
}

// Datasets returns the datasets of res in declaration order.
func (c *Catalog) Datasets(res Resolution) []Node {
	e, ok := c.entries[res]
	if !ok {
		return nil
	}
	return append([]Node(nil), e.datasets...)
}

// Parameters returns the flat parameters of res when dataset is zero, else the
// parameters of that dataset.
func (c *Catalog) Parameters(res Resolution, dataset Node) []Node {
	e, ok := c.entries[res]
	if !ok {
		return nil
	}
	if dataset.IsZero() || e.unique {
		return append([]Node(nil), e.flat...)
	}
	return append([]Node(nil), e.scoped[dataset.Name]...)
}

func (c *Catalog) IsUniqueDataset(res Resolution) bool {
	e, ok := c.entries[res]
	return ok && e.unique
}

func (c *Catalog) UnitOf(res Resolution, dataset, parameter Node) (Unit, bool) {
	e, ok := c.entries[res]
	if !ok {
		return Unit{}, false
	}
	u, ok := e.units[unitKey(dataset.Name, parameter.Name)]
	return u, ok
}

func (c *Catalog) DatasetForParameter(res Resolution, parameter Node) (Node, bool) {
	e, ok := c.entries[res]
	if !ok {
		return Node{}, false
	}
	ds, ok := e.paramDataset[parameter.Name]
	return ds, ok
}

func (c *Catalog) LookupResolution(token string) (Resolution, error) {
	if res, ok := c.resIndex[normalize(token)]; ok {
		return res, nil
	}
	return "", c.invalid("resolution", token)
}

func (c *Catalog) LookupPeriod(token string) (Period, error) {
	if p, ok := c.periodIndex[normalize(token)]; ok {
		return p, nil
	}
	return "", c.invalid("period", token)
}

func (c *Catalog) LookupDataset(res Resolution, token string) (Node, error) {
	e, ok := c.entries[res]
	if !ok || !c.hasDatasets {
		return Node{}, c.invalid("dataset", token)
	}
	if ds, ok := e.datasetIndex[normalize(token)]; ok {
		return ds, nil
	}
	return Node{}, c.invalid("dataset", token)
}

func (c *Catalog) LookupParameter(res Resolution, token string) (Node, error) {
	e, ok := c.entries[res]
	if !ok {
		return Node{}, c.invalid("parameter", token)
	}
	if p, ok := e.flatIndex[normalize(token)]; ok {
		return p, nil
	}
	return Node{}, c.invalid("parameter", token)
}

func (c *Catalog) ScopedParameter(res Resolution, dataset Node, name string) (Node, error) {
	e, ok := c.entries[res]
	if !ok {
		return Node{}, c.invalid("parameter", name)
	}
	if e.unique {
		return c.LookupParameter(res, name)
	}
	if p, ok := e.scopedIndex[dataset.Name][normalize(name)]; ok {
		return p, nil
	}
	return Node{}, fmt.Errorf("%w: %q is not a parameter of dataset %s (%s)", ErrInvalidEnumeration, name, dataset.Name, c.provider)
}

func (c *Catalog) invalid(what, token string) error {
	return fmt.Errorf("%w: %q is not a %s of %s", ErrInvalidEnumeration, token, what, c.provider)
}
