// Package store owns the durable event record store. Two backends implement
// the same contract: a file-backed SQLite store (the default) and Postgres.
// Discovery inserts are idempotent by primary key; enrichment writes go
// through a bounded busy-retry policy because the SQLite file permits only
// one writer at a time and enrichment workers run in parallel.
package store

import (
	"context"
	"errors"

	"github.com/Naga-Manohar-Y/EventMind/internal/model"
)

var (
	// ErrBusy marks a write that failed because another writer held the
	// store. Retryable.
	ErrBusy = errors.New("store busy")
	// ErrNotFound marks a by-id read for an id the store does not hold.
	ErrNotFound = errors.New("event not found")
)

// Pending identifies one record awaiting enrichment.
type Pending struct {
	ID  string
	URL string
}

// Store is the persistence contract shared by both phases.
type Store interface {
	// InitSchema creates the events table and its lookup indexes if absent.
	// Safe to call on every process start.
	InitSchema(ctx context.Context) error

	// InsertIfAbsent persists a newly discovered event. When a record with
	// the same id already exists it reports inserted=false and leaves the
	// stored record untouched; that is not an error.
	InsertIfAbsent(ctx context.Context, ev model.Event) (inserted bool, err error)

	// UpdateEnrichment sets summary and lead_score for an existing record,
	// retrying under the busy policy. A nil score stores NULL. Scores
	// outside [1,10] are stored as NULL; the summary still lands.
	UpdateEnrichment(ctx context.Context, id, summary string, score *int) error

	// Unenriched returns up to limit records whose summary is NULL, in
	// store-defined order.
	Unenriched(ctx context.Context, limit int) ([]Pending, error)

	// EnrichmentContext reads the descriptive fields of one record.
	// Returns ErrNotFound when the id is absent.
	EnrichmentContext(ctx context.Context, id string) (model.EnrichmentContext, error)

	// TopScored returns up to limit enriched records, best lead score first.
	TopScored(ctx context.Context, limit int) ([]model.Event, error)

	Close() error
}

// validScore reports whether a lead score may be persisted as-is.
func validScore(score *int) bool {
	return score == nil || (*score >= 1 && *score <= 10)
}
