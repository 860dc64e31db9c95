package parameter

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/stationkit/stationkit/internal/taxonomy"
)

// Resolver maps parameter specs onto one taxonomy.
type Resolver struct {
	tax    taxonomy.Taxonomy
	logger zerolog.Logger
}

// NewResolver creates a resolver for tax.
func NewResolver(tax taxonomy.Taxonomy, logger zerolog.Logger) *Resolver {
	return &Resolver{
		tax:    tax,
		logger: logger.With().Str("component", "parameter_resolver").Str("provider", tax.Provider()).Logger(),
	}
}

// Resolve returns the entries for specs at res in request order. Specs that
// cannot be resolved are logged and dropped.
func (r *Resolver) Resolve(specs []Spec, res taxonomy.Resolution) []Entry {
	return r.ResolveDetailed(specs, res).Entries
}

// ResolveDetailed is Resolve that also reports every dropped spec.
func (r *Resolver) ResolveDetailed(specs []Spec, res taxonomy.Resolution) Result {
	out := Result{Entries: make([]Entry, 0, len(specs))}
	for _, spec := range specs {
		entry, err := r.resolveOne(spec, res)
		if err != nil {
			r.logger.Info().
				Str("parameter", spec.String()).
				Str("resolution", string(res)).
				Str("reason", err.Error()).
				Msg("parameter dropped")
			out.Rejections = append(out.Rejections, Rejection{Spec: spec, Err: err})
			continue
		}
		out.Entries = append(out.Entries, entry)
	}
	return out
}

// resolveOne binds one spec. An unknown dataset token is ignored: the
// resolution's unique dataset or the parameter mapping supplies it instead.
func (r *Resolver) resolveOne(spec Spec, res taxonomy.Resolution) (Entry, error) {
	paramToken, datasetToken, err := spec.tokens()
	if err != nil {
		return Entry{}, err
	}

	var dataset taxonomy.Node
	if r.tax.HasDatasets() {
		if ds, err := r.tax.LookupDataset(res, datasetToken); err == nil {
			if strings.EqualFold(strings.TrimSpace(paramToken), strings.TrimSpace(datasetToken)) {
				return Entry{Parameter: ds, Dataset: ds}, nil
			}
			dataset = ds
		}
	}

	param, err := r.tax.LookupParameter(res, paramToken)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrUnresolvable, err)
	}

	if r.tax.IsUniqueDataset(res) {
		datasets := r.tax.Datasets(res)
		if len(datasets) != 1 {
			return Entry{}, fmt.Errorf("%w: resolution %s has %d datasets", ErrUnresolvable, res, len(datasets))
		}
		return Entry{Parameter: param, Dataset: datasets[0]}, nil
	}

	if dataset.IsZero() {
		ds, ok := r.tax.DatasetForParameter(res, param)
		if !ok {
			return Entry{}, fmt.Errorf("%w: no dataset for %s at %s", ErrUnresolvable, param.Name, res)
		}
		dataset = ds
	}

	scoped, err := r.tax.ScopedParameter(res, dataset, param.Name)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrUnresolvable, err)
	}
	return Entry{Parameter: scoped, Dataset: dataset}, nil
}
