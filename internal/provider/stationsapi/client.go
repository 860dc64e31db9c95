// Package stationsapi provides a client for HTTP station catalog services
// that serve station lists and per-station value series as JSON.
package stationsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stationkit/stationkit/internal/interpolation"
	"github.com/stationkit/stationkit/internal/parameter"
	"github.com/stationkit/stationkit/internal/provider/resilience"
	"github.com/stationkit/stationkit/internal/request"
	"github.com/stationkit/stationkit/internal/stations"
)

// ProviderName names the upstream in the resilience registry.
const ProviderName = "stationsapi"

// dateLayout is the wire format of window bounds.
const dateLayout = time.RFC3339

// ClientConfig holds configuration for the catalog client.
type ClientConfig struct {
	// BaseURL is the service root, without the trailing slash. Required.
	BaseURL string

	// HTTPClient executes requests. If nil, a resilient client is created.
	HTTPClient HTTPDoer

	// Timeout bounds one request of the default client.
	// Default: 10 seconds
	Timeout time.Duration

	// Registry receives the default client for health reporting.
	Registry *resilience.Registry

	Logger zerolog.Logger
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client reads station lists and value series from a catalog service. It
// implements stations.Source and interpolation.ValueSource.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

var (
	_ stations.Source           = (*Client)(nil)
	_ interpolation.ValueSource = (*Client)(nil)
)

// NewClient creates a catalog client.
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:            ProviderName,
			Timeout:         timeout,
			MaxRetries:      3,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Registry:        cfg.Registry,
			Logger:          cfg.Logger,
		})
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: httpClient,
		logger:     cfg.Logger.With().Str("provider", ProviderName).Logger(),
	}
}

type pagination struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
}

type stationsPage struct {
	Pagination pagination        `json:"pagination"`
	Data       []json.RawMessage `json:"data"`
}

type valuePoint struct {
	Date  string   `json:"date"`
	Value *float64 `json:"value"`
}

type valuesPage struct {
	Pagination pagination   `json:"pagination"`
	Data       []valuePoint `json:"data"`
}

// Stations fetches every page of the station list for the request's
// provider, resolution and datasets.
func (c *Client) Stations(ctx context.Context, req *request.Request) ([]stations.Record, error) {
	query := url.Values{}
	query.Set("provider", req.Provider())
	query.Set("resolution", string(req.Resolution()))
	for _, ds := range datasets(req) {
		query.Add("dataset", ds)
	}

	var records []stations.Record
	for page := 1; ; page++ {
		query.Set("page", strconv.Itoa(page))
		var body stationsPage
		if err := c.get(ctx, "/stations", query, &body); err != nil {
			return nil, fmt.Errorf("fetch stations: %w", err)
		}
		for _, raw := range body.Data {
			rec, err := decodeRecord(raw)
			if err != nil {
				return nil, fmt.Errorf("decode station row: %w", err)
			}
			records = append(records, rec)
		}
		if page >= body.Pagination.LastPage {
			break
		}
	}

	c.logger.Debug().Int("stations", len(records)).Str("resolution", string(req.Resolution())).Msg("fetched station list")
	return records, nil
}

// Values fetches the value series of one station and parameter, bounded by
// the request window when it is set.
func (c *Client) Values(ctx context.Context, req *request.Request, stationID string, entry parameter.Entry) ([]interpolation.Observation, error) {
	query := url.Values{}
	query.Set("provider", req.Provider())
	query.Set("station_id", stationID)
	query.Set("parameter", entry.Parameter.Name)
	query.Set("dataset", entry.Dataset.Name)
	query.Set("resolution", string(req.Resolution()))
	if start, ok := req.StartDate(); ok {
		query.Set("start", start.Format(dateLayout))
	}
	if end, ok := req.EndDate(); ok {
		query.Set("end", end.Format(dateLayout))
	}

	var out []interpolation.Observation
	for page := 1; ; page++ {
		query.Set("page", strconv.Itoa(page))
		var body valuesPage
		if err := c.get(ctx, "/values", query, &body); err != nil {
			return nil, fmt.Errorf("fetch values for station %s: %w", stationID, err)
		}
		for _, p := range body.Data {
			date, err := time.Parse(dateLayout, p.Date)
			if err != nil {
				return nil, fmt.Errorf("parse value date %q: %w", p.Date, err)
			}
			out = append(out, interpolation.Observation{Date: date.UTC(), Value: p.Value})
		}
		if page >= body.Pagination.LastPage {
			break
		}
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, into any) error {
	u := c.baseURL + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Path: path, StatusCode: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// StatusError reports an unexpected upstream status.
type StatusError struct {
	Path       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s endpoint", e.StatusCode, e.Path)
}

// decodeRecord keeps numbers as json.Number so that station ids such as
// "00433" and numeric ids survive unchanged; cast coerces the rest.
func decodeRecord(raw json.RawMessage) (stations.Record, error) {
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	var rec stations.Record
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	for k, v := range rec {
		if n, ok := v.(json.Number); ok {
			if k == stations.ColumnStationID {
				rec[k] = n.String()
				continue
			}
			f, err := n.Float64()
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", k, err)
			}
			rec[k] = f
		}
	}
	return rec, nil
}

func datasets(req *request.Request) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range req.Parameters() {
		name := e.Dataset.Name
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
