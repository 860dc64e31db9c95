package mosmix

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stationkit/stationkit/internal/provider/resilience"
	"github.com/stationkit/stationkit/internal/request"
	"github.com/stationkit/stationkit/internal/stations"
	"github.com/stationkit/stationkit/internal/taxonomy/dwd"
)

// Latest station files of the DWD open data server.
const (
	LargeURL = "https://opendata.dwd.de/weather/local_forecasts/mos/MOSMIX_L/all_stations/kml/MOSMIX_L_LATEST.kmz"
	SmallURL = "https://opendata.dwd.de/weather/local_forecasts/mos/MOSMIX_S/all_stations/kml/MOSMIX_S_LATEST_240.kmz"
)

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SourceConfig configures a Source.
type SourceConfig struct {
	// URLs maps a MOSMIX provider name to its KML or KMZ file.
	// Default: LargeURL and SmallURL for the two DWD products
	URLs map[string]string

	// HTTPClient fetches files. If nil, a resilient client is created.
	HTTPClient HTTPDoer

	// Registry receives the default client for health reporting.
	Registry *resilience.Registry

	Logger zerolog.Logger
}

// Source lists MOSMIX stations by streaming the product's KML file.
type Source struct {
	urls       map[string]string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

var _ stations.Source = (*Source)(nil)

// NewSource creates a Source.
func NewSource(cfg SourceConfig) *Source {
	urls := cfg.URLs
	if len(urls) == 0 {
		urls = map[string]string{
			dwd.MosmixLargeProvider: LargeURL,
			dwd.MosmixSmallProvider: SmallURL,
		}
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:     "mosmix",
			Timeout:  2 * time.Minute,
			Registry: cfg.Registry,
			Logger:   cfg.Logger,
		})
	}
	return &Source{
		urls:       urls,
		httpClient: httpClient,
		logger:     cfg.Logger.With().Str("provider", "mosmix").Logger(),
	}
}

// Stations downloads the file of the request's provider and collects its
// placemarks.
func (s *Source) Stations(ctx context.Context, req *request.Request) ([]stations.Record, error) {
	u, ok := s.urls[req.Provider()]
	if !ok {
		return nil, fmt.Errorf("no mosmix file configured for provider %s", req.Provider())
	}

	body, err := s.open(ctx, u)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var records []stations.Record
	n, err := Read(ctx, body, func(p Placemark) error {
		records = append(records, p.Record())
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Int("placemarks", n).Str("url", u).Msg("read mosmix stations")
	return records, nil
}

func (s *Source) open(ctx context.Context, u string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, u)
	}
	if !strings.HasSuffix(strings.ToLower(u), ".kmz") {
		return resp.Body, nil
	}

	defer resp.Body.Close()
	return OpenKMZ(resp.Body)
}

// OpenKMZ returns the first KML document inside a KMZ archive.
func OpenKMZ(r io.Reader) (io.ReadCloser, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read kmz: %w", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open kmz: %w", err)
	}
	for _, f := range zr.File {
		if strings.HasSuffix(strings.ToLower(f.Name), ".kml") {
			return f.Open()
		}
	}
	return nil, fmt.Errorf("kmz archive holds no kml document")
}
