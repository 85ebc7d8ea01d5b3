package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimers/internal/domain"
	"github.com/hamed0406/uptimers/internal/repo"
)

var _ repo.FactStore = (*Store)(nil)
var _ repo.Migrator = (*Store)(nil)

//go:embed schema.sql
var schemaSQL string

// Store keeps facts in a single SQLite file. Timestamps are unix seconds.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

var pathEscaper = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

// dsn builds a file: URI; SQLite decodes the escapes in the path part.
func dsn(path string) string {
	return "file:" + pathEscaper.Replace(path) + "?_busy_timeout=5000&_journal_mode=WAL"
}

func New(ctx context.Context, path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; concurrent persistence queues on the pool instead
	// of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	log.Info("sqlite_opened", zap.String("path", path))
	return &Store{db: db, log: log}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) LastFact(ctx context.Context, site string) (*domain.Fact, error) {
	var ts, ok, code int64
	err := s.db.QueryRowContext(ctx,
		`SELECT tstamp, success, status_code
		   FROM site_fact
		  WHERE site = ?
		  ORDER BY tstamp DESC
		  LIMIT 1`, site).Scan(&ts, &ok, &code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("last fact: %w", err)
	}
	return &domain.Fact{
		Site:       site,
		Timestamp:  time.Unix(ts, 0).UTC(),
		Success:    ok != 0,
		StatusCode: int(code),
	}, nil
}

func (s *Store) InsertFactIfAbsent(ctx context.Context, f domain.Fact) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO site_fact (site, tstamp, success, status_code)
		 VALUES (?, ?, ?, ?)`,
		f.Site, f.Timestamp.Unix(), f.Success, f.StatusCode,
	)
	if err != nil {
		return false, fmt.Errorf("insert fact: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert fact: %w", err)
	}
	return n == 1, nil
}

func (s *Store) UpsertSite(ctx context.Context, site domain.Site) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO site (site, name) VALUES (?, ?)
		 ON CONFLICT (site) DO UPDATE SET name = excluded.name`,
		site.Site, site.Name,
	)
	if err != nil {
		return fmt.Errorf("upsert site: %w", err)
	}
	return nil
}

func (s *Store) AggregatedStatus(ctx context.Context, keys []string, since time.Time) ([]domain.AggregatedStatus, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	in := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	q := `
WITH latest AS (
  SELECT f.site, f.tstamp, f.success, f.status_code
    FROM site_fact f
    JOIN (SELECT site, MAX(tstamp) AS tstamp
            FROM site_fact
           WHERE site IN (` + in + `)
           GROUP BY site) m
      ON m.site = f.site AND m.tstamp = f.tstamp
), recent AS (
  SELECT site, AVG(success) AS avg
    FROM site_fact
   WHERE site IN (` + in + `) AND tstamp >= ?
   GROUP BY site
)
SELECT l.site, s.name, l.tstamp, l.success, l.status_code, r.avg
  FROM latest l
  JOIN recent r ON r.site = l.site
  JOIN site   s ON s.site = l.site`

	args := make([]any, 0, 2*len(keys)+1)
	for _, k := range keys {
		args = append(args, k)
	}
	for _, k := range keys {
		args = append(args, k)
	}
	args = append(args, since.Unix())

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("aggregated status: %w", err)
	}
	defer rows.Close()

	var out []domain.AggregatedStatus
	for rows.Next() {
		var (
			st           domain.AggregatedStatus
			ts, ok, code int64
		)
		if err := rows.Scan(&st.Site, &st.Name, &ts, &ok, &code, &st.Avg); err != nil {
			return nil, fmt.Errorf("scan aggregated status: %w", err)
		}
		st.Timestamp = time.Unix(ts, 0).UTC()
		st.Success = ok != 0
		st.StatusCode = int(code)
		out = append(out, st)
	}
	return out, rows.Err()
}
