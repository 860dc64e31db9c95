package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/stationkit/stationkit/internal/api/models"
	"github.com/stationkit/stationkit/internal/api/response"
	"github.com/stationkit/stationkit/internal/interpolation"
	"github.com/stationkit/stationkit/internal/request"
	"github.com/stationkit/stationkit/internal/stations"
	"github.com/stationkit/stationkit/internal/taxonomy"
	"github.com/stationkit/stationkit/internal/telemetry"
)

// Engine holds the collaborators shared by the data handlers.
type Engine struct {
	// Taxonomies resolves provider names. Required.
	Taxonomies *taxonomy.Registry

	// Stations delivers station catalogs for every provider. Required.
	Stations stations.Source

	// Values delivers value series for interpolation. Interpolation
	// endpoints answer 501 when it is nil.
	Values interpolation.ValueSource

	// Settings are copied into every request.
	Settings request.Settings

	// Interpolation configures candidate selection; Values is filled in
	// from the engine.
	Interpolation interpolation.Config

	// Metrics may be nil.
	Metrics *telemetry.EngineMetrics

	Logger zerolog.Logger
}

// newRequest validates p for provider. On failure the problem has already
// been written and nil is returned.
func (e *Engine) newRequest(w http.ResponseWriter, r *http.Request, provider string, p request.Params) *request.Request {
	if provider == "" {
		response.BadRequest(w, r, "provider is required", []models.FieldError{
			{Field: "provider", Message: "required", Code: models.CodeRequired},
		})
		return nil
	}
	tax, err := e.Taxonomies.Lookup(provider)
	if err != nil {
		response.BadRequest(w, r, err.Error(), []models.FieldError{
			{Field: "provider", Message: "unknown provider", Code: models.CodeUnknown},
		})
		return nil
	}

	settings := e.Settings
	req, err := request.New(request.Config{Taxonomy: tax, Settings: &settings, Logger: e.Logger}, p)
	if err != nil {
		e.fail(w, r, err)
		return nil
	}
	if dropped := len(p.Parameters) - len(req.Parameters()); dropped > 0 {
		e.Metrics.RecordDroppedParameters(r.Context(), req.Provider(), dropped)
	}
	return req
}

func (e *Engine) selector(req *request.Request) *stations.Selector {
	return stations.NewSelector(stations.Config{Source: e.Stations, Logger: e.Logger}, req)
}
