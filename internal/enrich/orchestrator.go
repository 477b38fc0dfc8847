package enrich

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Naga-Manohar-Y/EventMind/internal/metrics"
	"github.com/Naga-Manohar-Y/EventMind/internal/store"
)

const (
	// DefaultWorkers is the enrichment pool size.
	DefaultWorkers = 4
	// DefaultBatchSize bounds how many unenriched records one run selects.
	DefaultBatchSize = 50
	// DefaultPacing is the per-task delay before invoking the enrichment
	// function, respecting the downstream provider's rate limit. Per task,
	// not coordinated across the pool.
	DefaultPacing = time.Second
	// PacingDisabled turns per-task pacing off when assigned to Pacing.
	PacingDisabled = time.Duration(-1)
)

// TaskResult is the per-record outcome of one enrichment task.
type TaskResult struct {
	ID          string
	ScoreStored bool  // false when the summary landed with a null score
	Err         error // nil on success (including the summary-stored-score-null case)
}

// Orchestrator fans unenriched records out across a bounded worker pool.
// Tasks are fully independent: each reads its own context from the store,
// calls the enricher, and writes back its own record. Failed tasks are not
// re-dispatched; a later run re-selects whatever still lacks a summary.
type Orchestrator struct {
	Store     store.Store
	Enricher  Enricher
	Workers   int // <= 0 means DefaultWorkers
	BatchSize int // <= 0 means DefaultBatchSize
	// Pacing is the per-task delay before the enrichment call. Zero means
	// DefaultPacing; PacingDisabled (any negative value) turns pacing off.
	Pacing time.Duration
	Log    zerolog.Logger
}

// Run processes one batch and reports a result per dispatched task. The
// returned error covers only the selection step; task failures live in the
// results.
func (o *Orchestrator) Run(ctx context.Context) ([]TaskResult, error) {
	workers := o.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	batch := o.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	pacing := o.Pacing
	if pacing < 0 {
		pacing = 0
	} else if pacing == 0 {
		pacing = DefaultPacing
	}

	pending, err := o.Store.Unenriched(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("enrich: select batch: %w", err)
	}
	if len(pending) == 0 {
		o.Log.Info().Msg("no events to enrich")
		return nil, nil
	}
	o.Log.Info().Int("count", len(pending)).Msg("enriching events")

	jobs := make(chan store.Pending)
	results := make(chan TaskResult, len(pending))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				scored, err := o.runTask(ctx, p, pacing)
				results <- TaskResult{ID: p.ID, ScoreStored: scored, Err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, p := range pending {
			select {
			case jobs <- p:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]TaskResult, 0, len(pending))
	for r := range results {
		switch {
		case r.Err != nil:
			metrics.EnrichTasks.WithLabelValues("failed").Inc()
			o.Log.Error().Err(r.Err).Str("event_id", r.ID).Msg("enrichment failed")
		case r.ScoreStored:
			metrics.EnrichTasks.WithLabelValues("success").Inc()
			o.Log.Info().Str("event_id", r.ID).Msg("stored summary and score")
		default:
			metrics.EnrichTasks.WithLabelValues("success").Inc()
			o.Log.Info().Str("event_id", r.ID).Msg("stored summary, score null")
		}
		out = append(out, r)
	}
	return out, nil
}

// runTask enriches one record and reports whether a score was stored. On any
// error the store is left untouched for this id; on success summary and the
// validated (possibly nil) score are written together.
func (o *Orchestrator) runTask(ctx context.Context, p store.Pending, pacing time.Duration) (bool, error) {
	ec, err := o.Store.EnrichmentContext(ctx, p.ID)
	if err != nil {
		return false, fmt.Errorf("load context: %w", err)
	}

	if pacing > 0 {
		t := time.NewTimer(pacing)
		select {
		case <-ctx.Done():
			t.Stop()
			return false, ctx.Err()
		case <-t.C:
		}
	}

	res, err := o.Enricher.Enrich(ctx, ec)
	if err != nil {
		return false, fmt.Errorf("enrich function: %w", err)
	}

	score, reason := parseScore(res.RawScore)
	switch reason {
	case scoreNonNumeric:
		o.Log.Warn().Str("event_id", p.ID).Str("raw", res.RawScore).
			Msg("score not parseable as integer, storing null")
	case scoreOutOfRange:
		o.Log.Warn().Str("event_id", p.ID).Str("raw", res.RawScore).
			Msg("score outside 1-10, storing null")
	case scoreAbsent:
		o.Log.Warn().Str("event_id", p.ID).Msg("no score produced, storing null")
	}

	if err := o.Store.UpdateEnrichment(ctx, p.ID, strings.TrimSpace(res.Summary), score); err != nil {
		return false, err
	}
	return score != nil, nil
}
