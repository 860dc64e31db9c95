package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/stationkit/stationkit/internal/api/middleware"
	"github.com/stationkit/stationkit/internal/api/response"
	"github.com/stationkit/stationkit/internal/interpolation"
	"github.com/stationkit/stationkit/internal/parameter"
	"github.com/stationkit/stationkit/internal/provider"
	"github.com/stationkit/stationkit/internal/provider/resilience"
	"github.com/stationkit/stationkit/internal/provider/stationsapi"
	"github.com/stationkit/stationkit/internal/request"
	"github.com/stationkit/stationkit/internal/stations"
	"github.com/stationkit/stationkit/internal/store"
	"github.com/stationkit/stationkit/internal/taxonomy"
)

// fail maps an engine error to its problem response.
func (e *Engine) fail(w http.ResponseWriter, r *http.Request, err error) {
	var status *stationsapi.StatusError

	switch {
	case errors.Is(err, stations.ErrInvalidArgument),
		errors.Is(err, stations.ErrQuery),
		errors.Is(err, request.ErrStartDateEndDate),
		errors.Is(err, taxonomy.ErrInvalidEnumeration),
		errors.Is(err, parameter.ErrMalformedSpec):
		response.BadRequest(w, r, err.Error(), nil)
	case errors.Is(err, interpolation.ErrUnsupportedResolution):
		response.NotImplemented(w, r, err.Error())
	case errors.Is(err, provider.ErrNoSource):
		response.NotFound(w, r, err.Error())
	case errors.Is(err, store.ErrCatalogNotFound),
		errors.Is(err, resilience.ErrCircuitOpen),
		errors.Is(err, context.DeadlineExceeded):
		e.Logger.Warn().Err(err).Str("request_id", middleware.GetRequestID(r.Context())).Msg("station source unavailable")
		response.ServiceUnavailable(w, r, err.Error())
	case errors.As(err, &status), errors.Is(err, resilience.ErrRetriesExhausted):
		e.Logger.Error().Err(err).Str("request_id", middleware.GetRequestID(r.Context())).Msg("station source failed")
		response.BadGateway(w, r, "station source failed")
	default:
		e.Logger.Error().Err(err).Str("request_id", middleware.GetRequestID(r.Context())).Msg("request failed")
		response.InternalError(w, r, "an unexpected error occurred")
	}
}
