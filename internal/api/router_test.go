package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stationkit/stationkit/internal/api"
	"github.com/stationkit/stationkit/internal/api/handler"
	"github.com/stationkit/stationkit/internal/api/models"
	"github.com/stationkit/stationkit/internal/interpolation"
	"github.com/stationkit/stationkit/internal/parameter"
	"github.com/stationkit/stationkit/internal/provider/resilience"
	"github.com/stationkit/stationkit/internal/provider/stationsapi"
	"github.com/stationkit/stationkit/internal/request"
	"github.com/stationkit/stationkit/internal/stations"
	"github.com/stationkit/stationkit/internal/store"
	"github.com/stationkit/stationkit/internal/taxonomy/dwd"
)

func catalog() []stations.Record {
	return []stations.Record{
		{"station_id": "00433", "from_date": "1948-01-01", "to_date": "2024-12-31", "height": 48.0,
			"latitude": 52.4675, "longitude": 13.4021, "name": "Berlin-Tempelhof", "state": "Berlin"},
		{"station_id": "01975", "from_date": "1936-01-01", "to_date": "2024-12-31", "height": 11.0,
			"latitude": 53.6332, "longitude": 9.9881, "name": "Hamburg-Fuhlsbüttel", "state": "Hamburg"},
		{"station_id": "02014", "from_date": "1936-01-01", "to_date": "2024-12-31", "height": 55.0,
			"latitude": 52.4644, "longitude": 9.6779, "name": "Hannover", "state": "Niedersachsen"},
		{"station_id": "03379", "from_date": "1879-01-01", "to_date": "2024-12-31", "height": 515.0,
			"latitude": 48.1632, "longitude": 11.5429, "name": "München-Stadt", "state": "Bayern"},
		{"station_id": "99999", "name": "Unknown", "state": ""},
	}
}

func staticSource(records []stations.Record, err error) stations.Source {
	return stations.SourceFunc(func(context.Context, *request.Request) ([]stations.Record, error) {
		return records, err
	})
}

type fakeValues struct{}

func (fakeValues) Values(_ context.Context, _ *request.Request, _ string, _ parameter.Entry) ([]interpolation.Observation, error) {
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]interpolation.Observation, 5)
	for i := range out {
		v := float64(i)
		out[i] = interpolation.Observation{Date: base.AddDate(0, 0, i), Value: &v}
	}
	return out, nil
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type routerOption func(*api.RouterConfig)

func newTestRouter(opts ...routerOption) http.Handler {
	logger := zerolog.New(io.Discard)
	cfg := api.RouterConfig{
		Version: "test",
		Logger:  logger,
		Engine: &handler.Engine{
			Taxonomies: dwd.Registry(),
			Stations:   staticSource(catalog(), nil),
			Values:     fakeValues{},
			Settings:   request.DefaultSettings(),
			Logger:     logger,
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return api.NewRouter(cfg)
}

func do(t *testing.T, h http.Handler, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func stationsURL(params url.Values) string {
	base := url.Values{
		"provider":   {dwd.ObservationProvider},
		"parameter":  {dwd.TemperatureAirMean200},
		"resolution": {"daily"},
	}
	for k, v := range params {
		base[k] = v
	}
	return "/v1/stations?" + base.Encode()
}

func TestRouter_HealthCheck(t *testing.T) {
	w := do(t, newTestRouter(), http.MethodGet, "/v1/ops/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	health := decode[models.Health](t, w)
	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.Equal(t, "test", health.Version)
}

func TestRouter_ReadinessCheck(t *testing.T) {
	upstreams := resilience.NewRegistry()
	resilience.NewClient(resilience.ClientConfig{Name: stationsapi.ProviderName, Registry: upstreams, Logger: zerolog.Nop()})

	ready := newTestRouter(func(c *api.RouterConfig) {
		c.Upstreams = upstreams
		c.Checks = map[string]handler.Pinger{"postgres": pinger{}}
	})
	w := do(t, ready, http.MethodGet, "/v1/ops/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	health := decode[models.Health](t, w)
	assert.Equal(t, models.HealthStatusOK, health.Status)
	require.Len(t, health.Upstreams, 1)
	assert.Equal(t, stationsapi.ProviderName, health.Upstreams[0].Name)
	require.Len(t, health.Checks, 1)

	unready := newTestRouter(func(c *api.RouterConfig) {
		c.Checks = map[string]handler.Pinger{"postgres": pinger{err: errors.New("connection refused")}}
	})
	w = do(t, unready, http.MethodGet, "/v1/ops/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, models.HealthStatusFail, decode[models.Health](t, w).Status)
}

func TestRouter_Providers(t *testing.T) {
	w := do(t, newTestRouter(), http.MethodGet, "/v1/taxonomies", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	list := decode[models.ProviderList](t, w)
	assert.Contains(t, list.Providers, dwd.ObservationProvider)
	assert.Contains(t, list.Providers, dwd.MosmixLargeProvider)
}

func TestRouter_Discover(t *testing.T) {
	r := newTestRouter()

	w := do(t, r, http.MethodGet, "/v1/taxonomies/dwd_observation/discover?resolution=daily&dataset=climate_summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var nested struct {
		Provider string                               `json:"provider"`
		Flat     bool                                 `json:"flat"`
		Datasets map[string]map[string]map[string]any `json:"datasets"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &nested))
	assert.Equal(t, dwd.ObservationProvider, nested.Provider)
	assert.False(t, nested.Flat)
	assert.Contains(t, nested.Datasets["daily"], dwd.DatasetClimateSummary)
	assert.Len(t, nested.Datasets["daily"], 1)

	w = do(t, r, http.MethodGet, "/v1/taxonomies/dwd_observation/discover?resolution=daily&flatten=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"flat":true`)

	w = do(t, r, http.MethodGet, "/v1/taxonomies/nope/discover", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodGet, "/v1/taxonomies/dwd_observation/discover?resolution=fortnightly", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodGet, "/v1/taxonomies/dwd_observation/discover?flatten=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_Stations(t *testing.T) {
	r := newTestRouter()

	tests := []struct {
		name   string
		params url.Values
		filter string
		ids    []string
	}{
		{"all", nil, handler.FilterAll, []string{"00433", "01975", "02014", "03379", "99999"}},
		{"station id", url.Values{"station_id": {"03379,00433"}}, handler.FilterStationID, []string{"00433", "03379"}},
		{"name", url.Values{"name": {"hamburg"}}, handler.FilterName, []string{"01975"}},
		{"rank", url.Values{"lat": {"52.52"}, "lon": {"13.40"}, "rank": {"2"}}, handler.FilterRank, []string{"00433", "02014"}},
		{"distance", url.Values{"lat": {"52.52"}, "lon": {"13.40"}, "distance": {"50"}, "unit": {"km"}}, handler.FilterDistance, []string{"00433"}},
		{"bbox", url.Values{"left": {"9"}, "bottom": {"52"}, "right": {"14"}, "top": {"54"}}, handler.FilterBBox, []string{"00433", "01975", "02014"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, http.MethodGet, stationsURL(tt.params), nil)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			list := decode[models.StationList](t, w)
			assert.Equal(t, tt.filter, list.Filter)
			assert.Equal(t, len(tt.ids), list.Count)
			ids := make([]string, len(list.Stations))
			for i, s := range list.Stations {
				ids[i] = s.StationID
			}
			assert.Equal(t, tt.ids, ids)
			assert.Equal(t, dwd.ObservationProvider, list.Request.Provider)
		})
	}
}

func TestRouter_Stations_RankReportsDistance(t *testing.T) {
	w := do(t, newTestRouter(), http.MethodGet, stationsURL(url.Values{"lat": {"52.52"}, "lon": {"13.40"}, "rank": {"1"}}), nil)
	require.Equal(t, http.StatusOK, w.Code)

	list := decode[models.StationList](t, w)
	require.Len(t, list.Stations, 1)
	require.NotNil(t, list.Stations[0].Distance)
	assert.InDelta(t, 5.8, *list.Stations[0].Distance, 0.5)
}

func TestRouter_Stations_UnknownLocationIsNull(t *testing.T) {
	w := do(t, newTestRouter(), http.MethodGet, stationsURL(url.Values{"station_id": {"99999"}}), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"latitude":null`)
	assert.Contains(t, w.Body.String(), `"from_date":null`)
}

func TestRouter_Stations_BadRequests(t *testing.T) {
	r := newTestRouter()

	tests := []struct {
		name   string
		target string
	}{
		{"missing provider", "/v1/stations?resolution=daily"},
		{"unknown provider", "/v1/stations?provider=nope"},
		{"unknown resolution", stationsURL(url.Values{"resolution": {"fortnightly"}})},
		{"inverted window", stationsURL(url.Values{"start_date": {"2021-01-01"}, "end_date": {"2020-01-01"}})},
		{"two filters", stationsURL(url.Values{"name": {"Berlin"}, "station_id": {"00433"}})},
		{"lat without rank", stationsURL(url.Values{"lat": {"52"}, "lon": {"13"}})},
		{"rank below one", stationsURL(url.Values{"lat": {"52"}, "lon": {"13"}, "rank": {"0"}})},
		{"rank not a number", stationsURL(url.Values{"lat": {"52"}, "lon": {"13"}, "rank": {"three"}})},
		{"negative distance", stationsURL(url.Values{"lat": {"52"}, "lon": {"13"}, "distance": {"-1"}})},
		{"unknown unit", stationsURL(url.Values{"lat": {"52"}, "lon": {"13"}, "distance": {"1"}, "unit": {"furlong"}})},
		{"latitude out of range", stationsURL(url.Values{"lat": {"95"}, "lon": {"13"}, "rank": {"1"}})},
		{"inverted bbox", stationsURL(url.Values{"left": {"14"}, "bottom": {"52"}, "right": {"9"}, "top": {"54"}})},
		{"partial bbox", stationsURL(url.Values{"left": {"9"}})},
		{"negative threshold", stationsURL(url.Values{"name": {"Berlin"}, "threshold": {"-1"}})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, http.MethodGet, tt.target, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
			assert.Equal(t, models.ProblemTypeValidation, decode[models.Problem](t, w).Type)
		})
	}
}

func TestRouter_Stations_SourceFailures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"catalog missing", store.ErrCatalogNotFound, http.StatusServiceUnavailable},
		{"circuit open", resilience.ErrCircuitOpen, http.StatusServiceUnavailable},
		{"upstream status", &stationsapi.StatusError{Path: "/stations", StatusCode: 500}, http.StatusBadGateway},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(func(c *api.RouterConfig) {
				c.Engine.Stations = staticSource(nil, tt.err)
			})
			w := do(t, r, http.MethodGet, stationsURL(nil), nil)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRouter_StationsQuery(t *testing.T) {
	r := newTestRouter()

	body := `{"provider":"dwd_observation","parameters":["temperature_air_mean_200"],"resolution":"daily",
		"sql":"SELECT * FROM data WHERE height > 50 ORDER BY height DESC"}`
	w := do(t, r, http.MethodPost, "/v1/stations:query", strings.NewReader(body))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	list := decode[models.StationList](t, w)
	assert.Equal(t, handler.FilterSQL, list.Filter)
	require.Len(t, list.Stations, 2)
	assert.Equal(t, "03379", list.Stations[0].StationID)
	require.NotNil(t, list.Stations[0].FromDate)
	assert.Equal(t, time.UTC, list.Stations[0].FromDate.Time().Location())
}

func TestRouter_StationsQuery_Errors(t *testing.T) {
	r := newTestRouter()

	w := do(t, r, http.MethodPost, "/v1/stations:query", strings.NewReader(`{"provider":"dwd_observation","resolution":"daily"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/v1/stations:query", strings.NewReader(`{"provider":"dwd_observation","resolution":"daily","sql":"SELECT * FROM elsewhere"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/v1/stations:query", strings.NewReader(`not json`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/stations:query", strings.NewReader(`sql=SELECT`))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestRouter_InterpolationCandidates(t *testing.T) {
	r := newTestRouter()

	target := "/v1/interpolation/candidates?" + url.Values{
		"provider":   {dwd.ObservationProvider},
		"parameter":  {dwd.TemperatureAirMean200 + "," + dwd.PrecipitationHeight},
		"resolution": {"daily"},
		"lat":        {"52.52"},
		"lon":        {"13.40"},
		"values":     {"true"},
	}.Encode()
	w := do(t, r, http.MethodGet, target, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode[models.Candidates](t, w)
	require.Len(t, body.Sets, 1)
	set := body.Sets[0]
	assert.Equal(t, dwd.TemperatureAirMean200, set.Parameter)
	assert.True(t, set.Sufficient)
	assert.GreaterOrEqual(t, len(set.Stations), 3)
	assert.Len(t, set.Rows, 5)
	assert.Len(t, set.Columns, len(set.Stations))
}

func TestRouter_InterpolationCandidates_Errors(t *testing.T) {
	r := newTestRouter()

	w := do(t, r, http.MethodGet, "/v1/interpolation/candidates?provider=dwd_observation&resolution=minute_10&parameter=temperature_air_mean_200&lat=52&lon=13", nil)
	assert.Equal(t, http.StatusNotImplemented, w.Code)

	w = do(t, r, http.MethodGet, "/v1/interpolation/candidates?provider=dwd_observation&resolution=daily", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	noValues := newTestRouter(func(c *api.RouterConfig) { c.Engine.Values = nil })
	w = do(t, noValues, http.MethodGet, "/v1/interpolation/candidates?provider=dwd_observation&resolution=daily&lat=52&lon=13", nil)
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestRouter_RequestID(t *testing.T) {
	r := newTestRouter()

	w := do(t, r, http.MethodGet, "/v1/ops/health", nil)
	assert.True(t, strings.HasPrefix(w.Header().Get("X-Request-Id"), "req_"))

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	req.Header.Set("X-Request-Id", "custom-id")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "custom-id", rec.Header().Get("X-Request-Id"))
}

func TestRouter_NotFoundAndMethod(t *testing.T) {
	r := newTestRouter()

	w := do(t, r, http.MethodGet, "/v1/nonexistent", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, models.ProblemTypeNotFound, decode[models.Problem](t, w).Type)

	w = do(t, r, http.MethodDelete, "/v1/stations", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, models.ProblemTypeMethodNotAllowed, decode[models.Problem](t, w).Type)
}
