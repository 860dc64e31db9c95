package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stationkit/stationkit/internal/api/models"
	"github.com/stationkit/stationkit/internal/api/response"
	"github.com/stationkit/stationkit/internal/taxonomy"
)

// TaxonomyHandler serves provider taxonomies.
type TaxonomyHandler struct {
	engine *Engine
}

// NewTaxonomyHandler creates a new TaxonomyHandler.
func NewTaxonomyHandler(engine *Engine) *TaxonomyHandler {
	return &TaxonomyHandler{engine: engine}
}

// Providers handles GET /v1/taxonomies.
func (h *TaxonomyHandler) Providers(w http.ResponseWriter, r *http.Request) {
	response.OK(w, r, models.ProviderList{Providers: h.engine.Taxonomies.Providers()})
}

// Discover handles GET /v1/taxonomies/{provider}/discover.
func (h *TaxonomyHandler) Discover(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	tax, err := h.engine.Taxonomies.Lookup(provider)
	if err != nil {
		response.NotFound(w, r, err.Error())
		return
	}

	q := r.URL.Query()
	f := &fieldReader{q: q}
	opts := taxonomy.DiscoverOptions{
		Resolutions: nonEmpty(q["resolution"]),
		Datasets:    nonEmpty(q["dataset"]),
		Flatten:     f.boolOr("flatten", false),
	}
	if !f.valid() {
		response.BadRequest(w, r, "invalid query parameters", f.errors)
		return
	}

	d, err := taxonomy.Discover(tax, opts, h.engine.Logger)
	if err != nil {
		h.engine.fail(w, r, err)
		return
	}
	response.OK(w, r, models.NewDiscovery(tax.Provider(), d))
}
