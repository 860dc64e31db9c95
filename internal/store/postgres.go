package store

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stationkit/stationkit/internal/request"
	"github.com/stationkit/stationkit/internal/stations"
)

// Schema creates the catalog table.
const Schema = `
CREATE TABLE IF NOT EXISTS station_catalog (
	provider   TEXT NOT NULL,
	resolution TEXT NOT NULL,
	station_id TEXT NOT NULL,
	from_date  TIMESTAMPTZ,
	to_date    TIMESTAMPTZ,
	height     DOUBLE PRECISION,
	latitude   DOUBLE PRECISION,
	longitude  DOUBLE PRECISION,
	name       TEXT NOT NULL DEFAULT '',
	state      TEXT NOT NULL DEFAULT '',
	synced_at  TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (provider, resolution, station_id)
)`

var catalogColumns = []string{
	"provider", "resolution", "station_id", "from_date", "to_date",
	"height", "latitude", "longitude", "name", "state", "synced_at",
}

// PostgresRepository stores catalogs in PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a repository on pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the catalog table when it is missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create station_catalog: %w", err)
	}
	return nil
}

// Stations returns the stored catalog of the request ordered by station id.
func (r *PostgresRepository) Stations(ctx context.Context, req *request.Request) ([]stations.Record, error) {
	key := KeyFor(req)
	query := `
		SELECT station_id, from_date, to_date, height, latitude, longitude, name, state
		FROM station_catalog
		WHERE provider = $1 AND resolution = $2
		ORDER BY station_id
	`

	rows, err := r.pool.Query(ctx, query, key.Provider, key.Resolution)
	if err != nil {
		return nil, fmt.Errorf("query station_catalog: %w", err)
	}
	defer rows.Close()

	var out []stations.Record
	for rows.Next() {
		var (
			id, name, state             string
			from, to                    *time.Time
			height, latitude, longitude *float64
		)
		if err := rows.Scan(&id, &from, &to, &height, &latitude, &longitude, &name, &state); err != nil {
			return nil, fmt.Errorf("scan station_catalog: %w", err)
		}
		out = append(out, stations.Record{
			stations.ColumnStationID: id,
			stations.ColumnFromDate:  timeOrNil(from),
			stations.ColumnToDate:    timeOrNil(to),
			stations.ColumnHeight:    floatOrNil(height),
			stations.ColumnLatitude:  floatOrNil(latitude),
			stations.ColumnLongitude: floatOrNil(longitude),
			stations.ColumnName:      name,
			stations.ColumnState:     state,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrCatalogNotFound, key)
	}
	return out, nil
}

// ReplaceAll deletes the catalog under key and copies list in, in one
// transaction.
func (r *PostgresRepository) ReplaceAll(ctx context.Context, key Key, list []stations.Station) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx,
		`DELETE FROM station_catalog WHERE provider = $1 AND resolution = $2`,
		key.Provider, key.Resolution,
	); err != nil {
		return fmt.Errorf("clear %s: %w", key, err)
	}

	now := time.Now().UTC()
	rows := make([][]any, len(list))
	for i, st := range list {
		rows[i] = []any{
			key.Provider, key.Resolution, st.ID,
			nullTime(st.FromDate), nullTime(st.ToDate),
			nullFloat(st.Height), nullFloat(st.Latitude), nullFloat(st.Longitude),
			st.Name, st.State, now,
		}
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"station_catalog"}, catalogColumns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("copy %s: %w", key, err)
	}
	return tx.Commit(ctx)
}

// Count returns the number of stations stored under key.
func (r *PostgresRepository) Count(ctx context.Context, key Key) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM station_catalog WHERE provider = $1 AND resolution = $2`,
		key.Provider, key.Resolution,
	).Scan(&n)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: %s", ErrCatalogNotFound, key)
	}
	return n, nil
}

// Ping checks the connection for readiness probes.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func nullFloat(f float64) any {
	if math.IsNaN(f) {
		return nil
	}
	return f
}

func timeOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func floatOrNil(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

var _ Repository = (*PostgresRepository)(nil)
