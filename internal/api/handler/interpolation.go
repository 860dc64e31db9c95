package handler

import (
	"net/http"

	"github.com/stationkit/stationkit/internal/api/models"
	"github.com/stationkit/stationkit/internal/api/response"
	"github.com/stationkit/stationkit/internal/interpolation"
)

// InterpolationHandler serves interpolation candidate selection.
type InterpolationHandler struct {
	engine *Engine
}

// NewInterpolationHandler creates a new InterpolationHandler.
func NewInterpolationHandler(engine *Engine) *InterpolationHandler {
	return &InterpolationHandler{engine: engine}
}

// Candidates handles GET /v1/interpolation/candidates. Set values=true to
// include the aligned value matrix of each set.
func (h *InterpolationHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	if h.engine.Values == nil {
		response.NotImplemented(w, r, "no value source is configured")
		return
	}

	q := r.URL.Query()
	f := &fieldReader{q: q}
	lat, lon := f.float("lat"), f.float("lon")
	withValues := f.boolOr("values", false)
	if !f.valid() {
		response.BadRequest(w, r, "invalid query parameters", f.errors)
		return
	}

	provider, params := queryParams(q)
	req := h.engine.newRequest(w, r, provider, params)
	if req == nil {
		return
	}

	cfg := h.engine.Interpolation
	cfg.Values = h.engine.Values
	cfg.Logger = h.engine.Logger
	sets, err := interpolation.NewInterpolator(cfg, h.engine.selector(req)).Interpolate(r.Context(), lat, lon)
	if err != nil {
		h.engine.fail(w, r, err)
		return
	}

	body := models.Candidates{
		Request:   models.NewRequestSummary(req),
		Latitude:  lat,
		Longitude: lon,
		Sets:      make([]models.CandidateSet, 0, len(sets)),
	}
	for _, c := range sets {
		h.engine.Metrics.RecordInterpolation(r.Context(), c.Parameter.Parameter.Name, c.Iterations, c.Sufficient)
		body.Sets = append(body.Sets, models.NewCandidateSet(c, withValues))
	}
	response.OK(w, r, body)
}
