// Package crawl implements the paginated listing crawler of the discovery
// phase. It walks successive listing pages for one region/category filter,
// extracts candidate event identifiers from each rendered page, and stops on
// a target count or the first dry page.
package crawl

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Naga-Manohar-Y/EventMind/internal/browser"
	"github.com/Naga-Manohar-Y/EventMind/internal/extract"
	"github.com/Naga-Manohar-Y/EventMind/internal/metrics"
)

const (
	// DefaultBaseURL is the listing site root. Overridable for tests.
	DefaultBaseURL = "https://www.eventbrite.com"
	// DefaultSettleDelay is how long a rendered page gets to populate its
	// dynamic content before link extraction. A fixed delay, not a condition
	// wait: the page never signals completion.
	DefaultSettleDelay = 3 * time.Second
	// DefaultMaxPages is a defensive ceiling. A site that keeps serving
	// already-seen event links page after page would otherwise loop forever,
	// since the only organic stop conditions are target-count and a page
	// with zero event links.
	DefaultMaxPages = 50
)

// Query selects which listing pages to crawl.
type Query struct {
	State     string // two-letter state code, e.g. "CA"
	City      string // display name, e.g. "San Francisco"
	Category  string // listing category slug, e.g. "tech"
	MaxEvents int    // target identifier count, 1..100
}

// Crawler drives one browser session across listing pages.
type Crawler struct {
	Session     browser.Session
	BaseURL     string
	SettleDelay time.Duration
	MaxPages    int
	Log         zerolog.Logger
}

// Collect gathers up to q.MaxEvents distinct event identifiers.
//
// It stops when the target count is reached, when a page yields zero event
// links (end of results and blocked/broken layouts look the same and are
// treated the same; nav and footer links on a dried-out page do not keep the
// crawl alive), or at the page ceiling. Any browser error aborts
// the whole crawl: the session state is unwound, so identifiers collected
// before the error are not returned.
func (c *Crawler) Collect(ctx context.Context, q Query) ([]string, error) {
	if q.MaxEvents < 1 {
		return nil, fmt.Errorf("crawl: max events must be >= 1, got %d", q.MaxEvents)
	}
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	settle := c.SettleDelay
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	maxPages := c.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	seen := make(map[string]struct{}, q.MaxEvents)
	ids := make([]string, 0, q.MaxEvents)

	for page := 1; page <= maxPages; page++ {
		url := ListingURL(base, q, page)
		c.Log.Debug().Int("page", page).Str("url", url).Msg("visiting listing page")

		if err := c.Session.Navigate(ctx, url); err != nil {
			return nil, fmt.Errorf("crawl: navigate page %d: %w", page, err)
		}
		if err := sleepCtx(ctx, settle); err != nil {
			return nil, fmt.Errorf("crawl: settle wait: %w", err)
		}
		hrefs, err := c.Session.Hyperlinks(ctx)
		if err != nil {
			return nil, fmt.Errorf("crawl: list links page %d: %w", page, err)
		}
		metrics.PagesCrawled.Inc()

		pageIDs := extract.EventIDs(hrefs)
		if len(pageIDs) == 0 {
			c.Log.Info().Int("page", page).Msg("no more events")
			return ids, nil
		}

		for _, id := range pageIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
			metrics.IdentifiersFound.Inc()
			if len(ids) >= q.MaxEvents {
				return ids, nil
			}
		}
	}

	c.Log.Warn().Int("pages", maxPages).Int("collected", len(ids)).
		Msg("page ceiling reached before target count")
	return ids, nil
}

// ListingURL builds the deterministic listing page URL for a query.
// Shape: {base}/d/{state}--{city-slug}/{category}-events/?page={n}
func ListingURL(base string, q Query, page int) string {
	return fmt.Sprintf("%s/d/%s--%s/%s-events/?page=%d",
		strings.TrimRight(base, "/"),
		strings.ToLower(strings.TrimSpace(q.State)),
		CitySlug(q.City),
		strings.ToLower(strings.TrimSpace(q.Category)),
		page,
	)
}

// CitySlug lowercases a city display name and joins its words with dashes
// ("San Francisco" -> "san-francisco").
func CitySlug(city string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(city))), "-")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
