// Package postgres provides a Postgres-backed chart sink.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/hot100-crawler/internal/billboard"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const defaultTable = "chart_entries"

// ChartStoreConfig controls the Postgres connection pool used for chart rows.
type ChartStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// ChartStore upserts chart entries into a table shaped like:
//
//	CREATE TABLE chart_entries (
//		chart_date date NOT NULL,
//		chart_url  text NOT NULL,
//		rank       int  NOT NULL,
//		song       text NOT NULL,
//		artist     text NOT NULL,
//		PRIMARY KEY (chart_date, rank)
//	);
type ChartStore struct {
	pool  execCloser
	table string
}

// NewChartStore creates a Postgres-backed ChartStore using the provided config.
func NewChartStore(ctx context.Context, cfg ChartStoreConfig) (*ChartStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &ChartStore{pool: pool, table: table}, nil
}

// NewChartStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewChartStoreWithPool(pool execCloser, table string) (*ChartStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	table, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &ChartStore{pool: pool, table: table}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		return defaultTable, nil
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *ChartStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Name identifies the sink in logs and errors.
func (s *ChartStore) Name() string {
	return "postgres"
}

// SaveChart writes every entry of the chart in one statement. Rows for the
// same chart date and rank are replaced.
func (s *ChartStore) SaveChart(ctx context.Context, page billboard.ChartPage) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("chart store is not configured")
	}
	date := page.Date
	if date == "" {
		date = billboard.ChartDateFromURL(page.URL)
	}
	if date == "" {
		return fmt.Errorf("chart %s has no publication date", page.URL)
	}

	ranks := make([]int32, 0, len(page.Entries))
	songs := make([]string, 0, len(page.Entries))
	artists := make([]string, 0, len(page.Entries))
	for i, entry := range page.Entries {
		rank, err := strconv.ParseInt(entry.Rank, 10, 32)
		if err != nil {
			return &billboard.InvalidEntryError{URL: page.URL, Index: i, Field: "rank"}
		}
		ranks = append(ranks, int32(rank))
		songs = append(songs, entry.Song)
		artists = append(artists, entry.Artist)
	}

	query := fmt.Sprintf(`
INSERT INTO %s (chart_date, chart_url, rank, song, artist)
SELECT $1::date, $2, e.rank, e.song, e.artist
FROM unnest($3::int[], $4::text[], $5::text[]) AS e(rank, song, artist)
ON CONFLICT (chart_date, rank) DO UPDATE
SET chart_url = EXCLUDED.chart_url,
	song = EXCLUDED.song,
	artist = EXCLUDED.artist`, s.table)

	if _, err := s.pool.Exec(ctx, query, date, page.URL, ranks, songs, artists); err != nil {
		return fmt.Errorf("upsert chart %s: %w", date, err)
	}
	return nil
}
