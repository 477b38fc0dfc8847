package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/Naga-Manohar-Y/EventMind/internal/model"
)

// Postgres is the shared-database backend, selected with EVENTMIND_PG_DSN.
// Contention there surfaces as lock/serialization errors rather than a
// locked file; they map onto the same ErrBusy and the same retry policy.
type Postgres struct {
	pool  *pgxpool.Pool
	retry RetryPolicy
	log   zerolog.Logger
}

// OpenPostgres connects a small pool. maxConns <= 0 defaults to 4, one per
// enrichment worker.
func OpenPostgres(ctx context.Context, dsn string, maxConns int, retry RetryPolicy, log zerolog.Logger) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("store: parse pg dsn: %w", err)
	}
	if maxConns <= 0 {
		maxConns = 4
	}
	cfg.MaxConns = int32(maxConns)
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store: connect postgres: %w", err)
	}
	if retry.Attempts == 0 {
		retry = DefaultRetryPolicy()
	}
	return &Postgres{pool: pool, retry: retry, log: log}, nil
}

func (s *Postgres) InitSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			name TEXT,
			url TEXT,
			start_utc TEXT,
			city TEXT,
			country TEXT,
			is_free BOOLEAN,
			venue_name TEXT,
			category_name TEXT,
			summary TEXT,
			lead_score INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_city ON events (city)`,
		`CREATE INDEX IF NOT EXISTS idx_events_start ON events (start_utc)`,
		`CREATE INDEX IF NOT EXISTS idx_events_score ON events (lead_score)`,
	}
	for _, q := range stmts {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("store: init schema: %w", classifyPg(err))
		}
	}
	return nil
}

func (s *Postgres) InsertIfAbsent(ctx context.Context, ev model.Event) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO events
			(id, name, url, start_utc, city, country, is_free, venue_name, category_name)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 ON CONFLICT (id) DO NOTHING`,
		ev.ID, ev.Name, ev.URL, ev.StartUTC, ev.City, ev.Country,
		ev.IsFree, ev.VenueName, ev.CategoryName,
	)
	if err != nil {
		return false, fmt.Errorf("store: insert %s: %w", ev.ID, classifyPg(err))
	}
	if tag.RowsAffected() == 0 {
		s.log.Info().Str("event_id", ev.ID).Msg("skipped: already exists")
		return false, nil
	}
	return true, nil
}

func (s *Postgres) UpdateEnrichment(ctx context.Context, id, summary string, score *int) error {
	if !validScore(score) {
		s.log.Warn().Str("event_id", id).Int("score", *score).
			Msg("lead score out of range at store boundary, persisting null")
		score = nil
	}
	err := s.retry.Do(ctx, func() error {
		_, err := s.pool.Exec(ctx,
			`UPDATE events SET summary = $1, lead_score = $2 WHERE id = $3`,
			summary, score, id)
		return classifyPg(err)
	})
	if err != nil {
		return fmt.Errorf("store: update enrichment %s: %w", id, err)
	}
	return nil
}

func (s *Postgres) Unenriched(ctx context.Context, limit int) ([]Pending, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, url FROM events WHERE summary IS NULL LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: select unenriched: %w", classifyPg(err))
	}
	defer rows.Close()

	var out []Pending
	for rows.Next() {
		var p Pending
		if err := rows.Scan(&p.ID, &p.URL); err != nil {
			return nil, fmt.Errorf("store: scan unenriched: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Postgres) EnrichmentContext(ctx context.Context, id string) (model.EnrichmentContext, error) {
	var ec model.EnrichmentContext
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, url, city, is_free, venue_name, category_name
		 FROM events WHERE id = $1`, id,
	).Scan(&ec.ID, &ec.Name, &ec.URL, &ec.City, &ec.IsFree, &ec.VenueName, &ec.CategoryName)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.EnrichmentContext{}, ErrNotFound
	}
	if err != nil {
		return model.EnrichmentContext{}, fmt.Errorf("store: read %s: %w", id, classifyPg(err))
	}
	return ec, nil
}

func (s *Postgres) TopScored(ctx context.Context, limit int) ([]model.Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, url, start_utc, city, country, is_free, venue_name,
		        category_name, summary, lead_score
		 FROM events
		 WHERE lead_score IS NOT NULL
		 ORDER BY lead_score DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: select top scored: %w", classifyPg(err))
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		var ev model.Event
		if err := rows.Scan(&ev.ID, &ev.Name, &ev.URL, &ev.StartUTC, &ev.City,
			&ev.Country, &ev.IsFree, &ev.VenueName, &ev.CategoryName,
			&ev.Summary, &ev.LeadScore); err != nil {
			return nil, fmt.Errorf("store: scan top scored: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

// classifyPg maps lock contention and serialization failures onto ErrBusy.
func classifyPg(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03", // lock_not_available
			"40001", // serialization_failure
			"40P01": // deadlock_detected
			return fmt.Errorf("%w: %v", ErrBusy, err)
		}
	}
	return err
}
