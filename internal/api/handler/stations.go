package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/stationkit/stationkit/internal/api/models"
	"github.com/stationkit/stationkit/internal/api/response"
	"github.com/stationkit/stationkit/internal/request"
	"github.com/stationkit/stationkit/internal/stations"
)

const maxQueryBody = 64 << 10

// Filter names reported in station list responses.
const (
	FilterAll       = "all"
	FilterStationID = "station_id"
	FilterName      = "name"
	FilterRank      = "rank"
	FilterDistance  = "distance"
	FilterBBox      = "bbox"
	FilterSQL       = "sql"
)

type filterFunc func(ctx context.Context, s *stations.Selector) (*stations.Result, error)

// StationsHandler serves the station selector.
type StationsHandler struct {
	engine *Engine
}

// NewStationsHandler creates a new StationsHandler.
func NewStationsHandler(engine *Engine) *StationsHandler {
	return &StationsHandler{engine: engine}
}

// List handles GET /v1/stations. At most one filter group may be given;
// without one the full catalog is returned.
func (h *StationsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := &fieldReader{q: q}
	name, filter := parseFilter(f)
	if !f.valid() {
		response.BadRequest(w, r, "invalid station filter", f.errors)
		return
	}

	provider, params := queryParams(q)
	req := h.engine.newRequest(w, r, provider, params)
	if req == nil {
		return
	}
	h.run(w, r, req, name, filter)
}

// Query handles POST /v1/stations:query, running an SQL statement against
// the table "data" holding the catalog.
func (h *StationsHandler) Query(w http.ResponseWriter, r *http.Request) {
	var body models.StationQuery
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQueryBody))
	if err := dec.Decode(&body); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if strings.TrimSpace(body.SQL) == "" {
		response.BadRequest(w, r, "sql is required", []models.FieldError{
			{Field: "sql", Message: "required", Code: models.CodeRequired},
		})
		return
	}

	provider, params := bodyParams(body.RequestParams)
	req := h.engine.newRequest(w, r, provider, params)
	if req == nil {
		return
	}
	h.run(w, r, req, FilterSQL, func(ctx context.Context, s *stations.Selector) (*stations.Result, error) {
		return s.FilterBySQL(ctx, body.SQL)
	})
}

func (h *StationsHandler) run(w http.ResponseWriter, r *http.Request, req *request.Request, name string, filter filterFunc) {
	res, err := filter(r.Context(), h.engine.selector(req))
	if err != nil {
		h.engine.fail(w, r, err)
		return
	}
	h.engine.Metrics.RecordFilter(r.Context(), req.Provider(), name, res.Len())

	response.OK(w, r, models.StationList{
		Request:  models.NewRequestSummary(req),
		Filter:   name,
		Count:    res.Len(),
		Stations: models.NewStations(res.Stations()),
	})
}

func parseFilter(f *fieldReader) (string, filterFunc) {
	var chosen []string
	if len(nonEmpty(f.q["station_id"])) > 0 {
		chosen = append(chosen, FilterStationID)
	}
	if f.has("name") {
		chosen = append(chosen, FilterName)
	}
	if f.has("rank") {
		chosen = append(chosen, FilterRank)
	}
	if f.has("distance") {
		chosen = append(chosen, FilterDistance)
	}
	if f.has("left") || f.has("bottom") || f.has("right") || f.has("top") {
		chosen = append(chosen, FilterBBox)
	}

	if len(chosen) > 1 {
		f.errors = append(f.errors, models.FieldError{
			Field:   strings.Join(chosen, ","),
			Message: "only one station filter may be given",
			Code:    models.CodeConflicting,
		})
		return "", nil
	}
	if len(chosen) == 0 {
		if f.has("lat") || f.has("lon") {
			f.errors = append(f.errors, models.FieldError{
				Field:   "rank",
				Message: "lat and lon need rank or distance",
				Code:    models.CodeRequired,
			})
			return "", nil
		}
		return FilterAll, func(ctx context.Context, s *stations.Selector) (*stations.Result, error) {
			return s.All(ctx)
		}
	}

	switch chosen[0] {
	case FilterStationID:
		tokens := nonEmpty(f.q["station_id"])
		ids := make([]any, len(tokens))
		for i, t := range tokens {
			ids[i] = t
		}
		return FilterStationID, func(ctx context.Context, s *stations.Selector) (*stations.Result, error) {
			return s.FilterByStationID(ctx, ids...)
		}
	case FilterName:
		name := f.required("name")
		first := f.boolOr("first", true)
		threshold := f.floatOr("threshold", stations.DefaultNameThreshold)
		return FilterName, func(ctx context.Context, s *stations.Selector) (*stations.Result, error) {
			return s.FilterByName(ctx, name, first, threshold)
		}
	case FilterRank:
		lat, lon := f.float("lat"), f.float("lon")
		rank := f.int("rank")
		return FilterRank, func(ctx context.Context, s *stations.Selector) (*stations.Result, error) {
			return s.FilterByRank(ctx, lat, lon, rank)
		}
	case FilterDistance:
		lat, lon := f.float("lat"), f.float("lon")
		distance := f.float("distance")
		unit := strings.TrimSpace(f.q.Get("unit"))
		return FilterDistance, func(ctx context.Context, s *stations.Selector) (*stations.Result, error) {
			return s.FilterByDistance(ctx, lat, lon, distance, unit)
		}
	default:
		left, bottom := f.float("left"), f.float("bottom")
		right, top := f.float("right"), f.float("top")
		return FilterBBox, func(ctx context.Context, s *stations.Selector) (*stations.Result, error) {
			return s.FilterByBBox(ctx, left, bottom, right, top)
		}
	}
}
