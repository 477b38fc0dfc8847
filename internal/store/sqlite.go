package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/Naga-Manohar-Y/EventMind/internal/model"
)

// SQLite is the default, file-backed store. SQLite serializes writers at
// the file level, which is exactly the store-wide contention the retry
// policy exists for: a second process (or a parallel enrichment worker)
// hitting the lock sees "database is locked" and backs off.
type SQLite struct {
	db    *sql.DB
	retry RetryPolicy
	log   zerolog.Logger
}

// OpenSQLite opens (creating parent directories as needed) the store at
// path, e.g. data/events.db.
func OpenSQLite(path string, retry RetryPolicy, log zerolog.Logger) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create data dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	if retry.Attempts == 0 {
		retry = DefaultRetryPolicy()
	}
	return &SQLite{db: db, retry: retry, log: log}, nil
}

func (s *SQLite) InitSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			name TEXT,
			url TEXT,
			start_utc TEXT,
			city TEXT,
			country TEXT,
			is_free INTEGER,
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
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("store: init schema: %w", classifySQLite(err))
		}
	}
	return nil
}

func (s *SQLite) InsertIfAbsent(ctx context.Context, ev model.Event) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO events
			(id, name, url, start_utc, city, country, is_free, venue_name, category_name)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		ev.ID, ev.Name, ev.URL, ev.StartUTC, ev.City, ev.Country,
		boolToInt(ev.IsFree), ev.VenueName, ev.CategoryName,
	)
	if err != nil {
		return false, fmt.Errorf("store: insert %s: %w", ev.ID, classifySQLite(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: insert %s: %w", ev.ID, err)
	}
	if n == 0 {
		s.log.Info().Str("event_id", ev.ID).Msg("skipped: already exists")
		return false, nil
	}
	return true, nil
}

func (s *SQLite) UpdateEnrichment(ctx context.Context, id, summary string, score *int) error {
	if !validScore(score) {
		s.log.Warn().Str("event_id", id).Int("score", *score).
			Msg("lead score out of range at store boundary, persisting null")
		score = nil
	}
	err := s.retry.Do(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`UPDATE events SET summary = ?, lead_score = ? WHERE id = ?`,
			summary, nullableInt(score), id,
		)
		return classifySQLite(err)
	})
	if err != nil {
		return fmt.Errorf("store: update enrichment %s: %w", id, err)
	}
	return nil
}

func (s *SQLite) Unenriched(ctx context.Context, limit int) ([]Pending, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url FROM events WHERE summary IS NULL LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: select unenriched: %w", classifySQLite(err))
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

func (s *SQLite) EnrichmentContext(ctx context.Context, id string) (model.EnrichmentContext, error) {
	var (
		ec     model.EnrichmentContext
		isFree int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, url, city, is_free, venue_name, category_name
		 FROM events WHERE id = ?`, id,
	).Scan(&ec.ID, &ec.Name, &ec.URL, &ec.City, &isFree, &ec.VenueName, &ec.CategoryName)
	if err == sql.ErrNoRows {
		return model.EnrichmentContext{}, ErrNotFound
	}
	if err != nil {
		return model.EnrichmentContext{}, fmt.Errorf("store: read %s: %w", id, classifySQLite(err))
	}
	ec.IsFree = isFree != 0
	return ec, nil
}

func (s *SQLite) TopScored(ctx context.Context, limit int) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, url, start_utc, city, country, is_free, venue_name,
		        category_name, summary, lead_score
		 FROM events
		 WHERE lead_score IS NOT NULL
		 ORDER BY lead_score DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: select top scored: %w", classifySQLite(err))
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		var (
			ev      model.Event
			isFree  int
			summary sql.NullString
			score   sql.NullInt64
		)
		if err := rows.Scan(&ev.ID, &ev.Name, &ev.URL, &ev.StartUTC, &ev.City,
			&ev.Country, &isFree, &ev.VenueName, &ev.CategoryName, &summary, &score); err != nil {
			return nil, fmt.Errorf("store: scan top scored: %w", err)
		}
		ev.IsFree = isFree != 0
		if summary.Valid {
			s := summary.String
			ev.Summary = &s
		}
		if score.Valid {
			n := int(score.Int64)
			ev.LeadScore = &n
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error { return s.db.Close() }

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

// classifySQLite maps the driver's busy/locked conditions onto ErrBusy so
// the retry policy can match them with errors.Is.
func classifySQLite(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "(5)") && strings.Contains(msg, "busy") ||
		strings.Contains(msg, "sqlite_busy") {
		return fmt.Errorf("%w: %v", ErrBusy, err)
	}
	return err
}
