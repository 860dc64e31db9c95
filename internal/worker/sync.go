package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/stationkit/stationkit/internal/request"
	"github.com/stationkit/stationkit/internal/stations"
	"github.com/stationkit/stationkit/internal/store"
	"github.com/stationkit/stationkit/internal/taxonomy"
	"github.com/stationkit/stationkit/internal/telemetry"
)

// SyncJob copies station catalogs from their upstream source into a
// repository.
type SyncJob struct {
	config     SyncConfig
	taxonomies *taxonomy.Registry
	source     stations.Source
	store      store.Repository
	metrics    *telemetry.EngineMetrics
	logger     zerolog.Logger

	mu    sync.RWMutex
	stats SyncStats
}

// SyncStats tracks sync job statistics.
type SyncStats struct {
	Runs            int64
	CatalogsSynced  int64
	CatalogsFailed  int64
	LastRunAt       time.Time
	LastRunDuration time.Duration
	LastJobID       string
}

// SyncJobConfig holds configuration for creating a SyncJob.
type SyncJobConfig struct {
	Config     SyncConfig
	Taxonomies *taxonomy.Registry
	Source     stations.Source
	Store      store.Repository

	// Metrics may be nil.
	Metrics *telemetry.EngineMetrics

	Logger zerolog.Logger
}

// NewSyncJob creates a new sync job.
func NewSyncJob(cfg SyncJobConfig) *SyncJob {
	config := cfg.Config
	defaults := DefaultSyncConfig()
	if len(config.Catalogs) == 0 {
		config.Catalogs = defaults.Catalogs
	}
	if config.Concurrency <= 0 {
		config.Concurrency = defaults.Concurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}

	return &SyncJob{
		config:     config,
		taxonomies: cfg.Taxonomies,
		source:     cfg.Source,
		store:      cfg.Store,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger.With().Str("component", "sync").Logger(),
	}
}

// Catalogs returns the configured catalogs.
func (j *SyncJob) Catalogs() []Catalog {
	return append([]Catalog(nil), j.config.Catalogs...)
}

// SyncResult contains the result of one run.
type SyncResult struct {
	JobID      string
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	Catalogs   int
	Successful int
	Failed     int
	Stations   int
	Errors     []SyncError
}

// SyncError records a catalog that failed to sync.
type SyncError struct {
	Catalog string
	Error   string
}

// Run syncs every configured catalog.
func (j *SyncJob) Run(ctx context.Context) *SyncResult {
	return j.RunCatalogs(ctx, j.config.Catalogs)
}

// RunCatalogs syncs the given catalogs. A failed catalog does not stop the
// others; its previous contents stay in place.
func (j *SyncJob) RunCatalogs(ctx context.Context, catalogs []Catalog) *SyncResult {
	result := &SyncResult{
		JobID:     "sync_" + uuid.NewString(),
		StartTime: time.Now(),
		Catalogs:  len(catalogs),
	}
	logger := j.logger.With().Str("job_id", result.JobID).Logger()

	logger.Info().
		Int("catalogs", len(catalogs)).
		Int("concurrency", j.config.Concurrency).
		Msg("starting catalog sync")

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.config.Concurrency)
	for _, c := range catalogs {
		g.Go(func() error {
			n, err := j.syncCatalog(gctx, c)
			j.metrics.RecordSync(gctx, c.String(), n, err)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Error().Err(err).Str("catalog", c.String()).Msg("catalog sync failed")
				result.Failed++
				result.Errors = append(result.Errors, SyncError{Catalog: c.String(), Error: err.Error()})
				return nil
			}
			logger.Info().Str("catalog", c.String()).Int("stations", n).Msg("catalog synced")
			result.Successful++
			result.Stations += n
			return nil
		})
	}
	_ = g.Wait()

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	j.updateStats(result)

	logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Int("stations", result.Stations).
		Msg("catalog sync completed")

	return result
}

func (j *SyncJob) syncCatalog(ctx context.Context, c Catalog) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	req, err := j.request(c)
	if err != nil {
		return 0, err
	}

	all, err := stations.NewSelector(stations.Config{Source: j.source, Logger: j.logger}, req).All(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetching %s: %w", c, err)
	}
	if all.Empty() {
		return 0, fmt.Errorf("fetching %s: source returned no stations", c)
	}

	if err := j.store.ReplaceAll(ctx, store.KeyFor(req), all.Stations()); err != nil {
		return 0, fmt.Errorf("storing %s: %w", c, err)
	}
	return all.Len(), nil
}

func (j *SyncJob) request(c Catalog) (*request.Request, error) {
	tax, err := j.taxonomies.Lookup(c.Provider)
	if err != nil {
		return nil, err
	}
	return request.New(request.Config{Taxonomy: tax, Logger: zerolog.Nop()}, request.Params{Resolution: c.Resolution})
}

// Check verifies that every configured catalog is stored and not empty.
func (j *SyncJob) Check(ctx context.Context) error {
	for _, c := range j.config.Catalogs {
		req, err := j.request(c)
		if err != nil {
			return err
		}
		n, err := j.store.Count(ctx, store.KeyFor(req))
		if err != nil {
			return fmt.Errorf("counting %s: %w", c, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", store.ErrCatalogNotFound, c)
		}
	}
	return nil
}

func (j *SyncJob) updateStats(result *SyncResult) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.stats.Runs++
	j.stats.CatalogsSynced += int64(result.Successful)
	j.stats.CatalogsFailed += int64(result.Failed)
	j.stats.LastRunAt = result.EndTime
	j.stats.LastRunDuration = result.Duration
	j.stats.LastJobID = result.JobID
}

// Stats returns a copy of the current statistics.
func (j *SyncJob) Stats() SyncStats {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.stats
}
