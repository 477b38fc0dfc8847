// Package discovery wires the discovery phase together: crawl listing pages
// for identifiers, resolve each against the catalog, filter out ineligible
// events, and persist the survivors idempotently.
package discovery

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Naga-Manohar-Y/EventMind/internal/catalog"
	"github.com/Naga-Manohar-Y/EventMind/internal/crawl"
	"github.com/Naga-Manohar-Y/EventMind/internal/metrics"
	"github.com/Naga-Manohar-Y/EventMind/internal/model"
	"github.com/Naga-Manohar-Y/EventMind/internal/store"
)

// Collector yields candidate identifiers for a query. *crawl.Crawler is the
// production implementation.
type Collector interface {
	Collect(ctx context.Context, q crawl.Query) ([]string, error)
}

// Catalog is the slice of the catalog client the runner needs.
type Catalog interface {
	FetchEvent(ctx context.Context, eventID string) (catalog.EventDetail, bool)
	FetchVenue(ctx context.Context, venueID string) (catalog.VenueDetail, bool)
	FetchCategories(ctx context.Context) map[string]string
}

// Summary is the end-of-run accounting for one discovery pass.
type Summary struct {
	Collected   int // identifiers the crawler produced
	Inserted    int // new records persisted
	Duplicates  int // identifiers already in the store
	SkippedData int // no catalog data for the identifier
	Ineligible  int // online-only or venue-less events
}

// Runner executes one discovery pass. The category table is fetched once at
// run start and threaded through; it is never cached across runs.
type Runner struct {
	Collector Collector
	Catalog   Catalog
	Store     store.Store
	Log       zerolog.Logger
}

// Run returns a fatal error only for crawl or store failures; catalog
// hiccups degrade to per-identifier skips.
func (r *Runner) Run(ctx context.Context, q crawl.Query) (Summary, error) {
	var sum Summary

	ids, err := r.Collector.Collect(ctx, q)
	if err != nil {
		return sum, fmt.Errorf("discovery: %w", err)
	}
	sum.Collected = len(ids)
	r.Log.Info().Int("count", len(ids)).Msg("collected event ids")

	categories := r.Catalog.FetchCategories(ctx)

	for _, id := range ids {
		detail, ok := r.Catalog.FetchEvent(ctx, id)
		if !ok {
			sum.SkippedData++
			metrics.EventsSkipped.WithLabelValues("no_data").Inc()
			r.Log.Info().Str("event_id", id).Msg("skipped: no data")
			continue
		}
		if detail.OnlineEvent || detail.VenueID == "" {
			sum.Ineligible++
			metrics.EventsSkipped.WithLabelValues("ineligible").Inc()
			r.Log.Info().Str("event_id", id).Msg("skipped: online or venue-less event")
			continue
		}

		venue, _ := r.Catalog.FetchVenue(ctx, detail.VenueID)

		ev := model.Event{
			ID:           detail.ID,
			Name:         detail.Name.Text,
			URL:          detail.URL,
			StartUTC:     detail.Start.UTC,
			City:         venue.Address.City,
			Country:      venue.Address.Country,
			IsFree:       detail.IsFree,
			VenueName:    venue.Name,
			CategoryName: categories[detail.CategoryID],
		}

		inserted, err := r.Store.InsertIfAbsent(ctx, ev)
		if err != nil {
			return sum, fmt.Errorf("discovery: persist %s: %w", ev.ID, err)
		}
		if !inserted {
			sum.Duplicates++
			metrics.EventsSkipped.WithLabelValues("duplicate").Inc()
			continue
		}
		sum.Inserted++
		metrics.EventsInserted.Inc()
		r.Log.Info().Str("event_id", ev.ID).Str("name", ev.Name).Msg("stored event")
	}

	r.Log.Info().
		Int("collected", sum.Collected).
		Int("inserted", sum.Inserted).
		Int("duplicates", sum.Duplicates).
		Int("skipped_no_data", sum.SkippedData).
		Int("ineligible", sum.Ineligible).
		Msg("discovery run complete")
	return sum, nil
}
