package stations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	_ "modernc.org/sqlite"
)

// SQLTable is the table name queries passed to FilterBySQL read from.
const SQLTable = "data"

const sqlDateLayout = "2006-01-02 15:04:05"

// ErrQuery is returned when a FilterBySQL query fails to run or does not
// select station_id.
var ErrQuery = errors.New("invalid station query")

const createDataTable = `CREATE TABLE ` + SQLTable + ` (
	station_id TEXT,
	from_date  TEXT,
	to_date    TEXT,
	height     REAL,
	latitude   REAL,
	longitude  REAL,
	name       TEXT,
	state      TEXT
)`

const insertData = `INSERT INTO ` + SQLTable + `
	(station_id, from_date, to_date, height, latitude, longitude, name, state)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

// FilterBySQL runs query against an in-memory SQLite table named "data"
// holding the station table. Dates are stored as UTC text in the form
// "2006-01-02 15:04:05". The query is trusted; result rows are coerced back
// into stations with dates in UTC.
func (s *Selector) FilterBySQL(ctx context.Context, query string) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", ErrInvalidArgument)
	}

	ctx, span := s.tracer.Start(ctx, "stations.filter_by_sql", trace.WithAttributes(
		attribute.String("db.statement", query),
	))
	defer span.End()

	all, err := s.all(ctx)
	if err != nil {
		return nil, spanError(span, err)
	}

	db, err := openStationTable(ctx, all)
	if err != nil {
		return nil, spanError(span, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, spanError(span, fmt.Errorf("%w: %w", ErrQuery, err))
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, spanError(span, err)
	}

	out := make([]Station, 0, len(records))
	for _, r := range records {
		st, err := Coerce(r)
		if err != nil {
			return nil, spanError(span, fmt.Errorf("coercing query row: %w", err))
		}
		out = append(out, st)
	}
	return s.result(span, out, func(e *zerolog.Event) {
		e.Str("sql", query)
	}), nil
}

func openStationTable(ctx context.Context, stations []Station) (*sql.DB, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening station table: %w", err)
	}
	// Every connection to ":memory:" is its own database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := loadStationTable(ctx, db, stations); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func loadStationTable(ctx context.Context, db *sql.DB, stations []Station) error {
	if _, err := db.ExecContext(ctx, createDataTable); err != nil {
		return fmt.Errorf("creating station table: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("loading station table: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertData)
	if err != nil {
		return fmt.Errorf("loading station table: %w", err)
	}
	defer stmt.Close()

	for _, st := range stations {
		_, err := stmt.ExecContext(ctx,
			st.ID,
			sqlDate(st.FromDate),
			sqlDate(st.ToDate),
			sqlFloat(st.Height),
			sqlFloat(st.Latitude),
			sqlFloat(st.Longitude),
			st.Name,
			st.State,
		)
		if err != nil {
			return fmt.Errorf("inserting station %s: %w", st.ID, err)
		}
	}
	return tx.Commit()
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if !hasColumn(cols, ColumnStationID) {
		return nil, fmt.Errorf("%w: query must select station_id", ErrQuery)
	}

	var out []Record
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning station query: %w", err)
		}
		r := make(Record, len(cols))
		for i, c := range cols {
			key := strings.ToLower(c)
			if b, ok := values[i].([]byte); ok {
				r[key] = string(b)
				continue
			}
			r[key] = values[i]
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func hasColumn(cols []string, name string) bool {
	for _, c := range cols {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

func sqlDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(sqlDateLayout)
}

func sqlFloat(f float64) any {
	if math.IsNaN(f) {
		return nil
	}
	return f
}
