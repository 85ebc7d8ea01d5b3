package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimers/internal/domain"
	"github.com/hamed0406/uptimers/internal/repo"
)

var _ repo.FactStore = (*Store)(nil)
var _ repo.Migrator = (*Store)(nil)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	log.Info("postgres_connected",
		zap.String("host", cfg.ConnConfig.Host),
		zap.String("database", cfg.ConnConfig.Database),
	)
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates the site and site_fact tables when they are missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) LastFact(ctx context.Context, site string) (*domain.Fact, error) {
	var (
		f    = domain.Fact{Site: site}
		code int16
	)
	err := s.pool.QueryRow(ctx,
		`SELECT tstamp, success, status_code
		   FROM site_fact
		  WHERE site = $1
		  ORDER BY tstamp DESC
		  LIMIT 1`, site).Scan(&f.Timestamp, &f.Success, &code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("last fact: %w", err)
	}
	f.Timestamp = f.Timestamp.UTC()
	f.StatusCode = int(code)
	return &f, nil
}

func (s *Store) InsertFactIfAbsent(ctx context.Context, f domain.Fact) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO site_fact (site, tstamp, success, status_code)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (site, tstamp) DO NOTHING`,
		f.Site, f.Timestamp.UTC(), f.Success, int16(f.StatusCode),
	)
	if err != nil {
		return false, fmt.Errorf("insert fact: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) UpsertSite(ctx context.Context, site domain.Site) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO site (site, name)
		 VALUES ($1, $2)
		 ON CONFLICT (site) DO UPDATE SET name = EXCLUDED.name`,
		site.Site, site.Name,
	)
	if err != nil {
		return fmt.Errorf("upsert site: %w", err)
	}
	return nil
}

const aggregatedStatusSQL = `
WITH latest AS (
  SELECT DISTINCT ON (site) site, tstamp, success, status_code
    FROM site_fact
   WHERE site = ANY($1)
   ORDER BY site, tstamp DESC
), recent AS (
  SELECT site, AVG(CASE WHEN success THEN 1.0 ELSE 0.0 END)::float8 AS avg
    FROM site_fact
   WHERE site = ANY($1) AND tstamp >= $2
   GROUP BY site
)
SELECT l.site, s.name, l.tstamp, l.success, l.status_code, r.avg
  FROM latest l
  JOIN recent r ON r.site = l.site
  JOIN site   s ON s.site = l.site`

func (s *Store) AggregatedStatus(ctx context.Context, keys []string, since time.Time) ([]domain.AggregatedStatus, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, aggregatedStatusSQL, keys, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("aggregated status: %w", err)
	}
	defer rows.Close()

	var out []domain.AggregatedStatus
	for rows.Next() {
		var (
			st   domain.AggregatedStatus
			code int16
		)
		if err := rows.Scan(&st.Site, &st.Name, &st.Timestamp, &st.Success, &code, &st.Avg); err != nil {
			return nil, fmt.Errorf("scan aggregated status: %w", err)
		}
		st.Timestamp = st.Timestamp.UTC()
		st.StatusCode = int(code)
		out = append(out, st)
	}
	return out, rows.Err()
}
