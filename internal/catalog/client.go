// Package catalog is the REST client for the remote event catalog (the
// Eventbrite v3 API). Every call is an independent idempotent GET with a
// short fixed timeout and no retry: a failed call is logged and yields an
// empty result, so one bad identifier never stalls the discovery run.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Naga-Manohar-Y/EventMind/internal/metrics"
)

// DefaultBaseURL is the production catalog API root.
const DefaultBaseURL = "https://www.eventbriteapi.com/v3"

// DefaultTimeout bounds every catalog call.
const DefaultTimeout = 5 * time.Second

// EventDetail is the catalog's event payload, limited to the fields the
// pipeline consumes.
type EventDetail struct {
	ID   string `json:"id"`
	Name struct {
		Text string `json:"text"`
	} `json:"name"`
	URL   string `json:"url"`
	Start struct {
		UTC string `json:"utc"`
	} `json:"start"`
	IsFree      bool   `json:"is_free"`
	OnlineEvent bool   `json:"online_event"`
	VenueID     string `json:"venue_id"`
	CategoryID  string `json:"category_id"`
}

// VenueDetail resolves a venue identifier to a display name and address.
type VenueDetail struct {
	Name    string `json:"name"`
	Address struct {
		City    string `json:"city"`
		Country string `json:"country"`
	} `json:"address"`
}

// Client talks to the catalog API with bearer-token auth.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     zerolog.Logger
}

type Options struct {
	BaseURL string        // empty = DefaultBaseURL
	Token   string        // bearer token; the API rejects unauthenticated calls
	Timeout time.Duration // empty = DefaultTimeout
	Log     zerolog.Logger
}

func New(opts Options) *Client {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	to := opts.Timeout
	if to <= 0 {
		to = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		token:   strings.TrimSpace(opts.Token),
		http:    &http.Client{Timeout: to},
		log:     opts.Log,
	}
}

// FetchEvent resolves one event identifier. ok is false on any transport or
// HTTP failure, and on payloads with no id.
func (c *Client) FetchEvent(ctx context.Context, eventID string) (EventDetail, bool) {
	var d EventDetail
	u := c.baseURL + "/events/" + url.PathEscape(eventID) + "/"
	if err := c.getJSON(ctx, u, &d); err != nil {
		metrics.CatalogErrors.WithLabelValues("event").Inc()
		c.log.Warn().Err(err).Str("event_id", eventID).Msg("event detail fetch failed")
		return EventDetail{}, false
	}
	if d.ID == "" {
		metrics.CatalogErrors.WithLabelValues("event").Inc()
		c.log.Warn().Str("event_id", eventID).Msg("event detail payload had no id")
		return EventDetail{}, false
	}
	return d, true
}

// FetchVenue resolves a venue identifier. An empty venueID short-circuits to
// not-ok without a network call.
func (c *Client) FetchVenue(ctx context.Context, venueID string) (VenueDetail, bool) {
	if strings.TrimSpace(venueID) == "" {
		return VenueDetail{}, false
	}
	var v VenueDetail
	u := c.baseURL + "/venues/" + url.PathEscape(venueID) + "/"
	if err := c.getJSON(ctx, u, &v); err != nil {
		metrics.CatalogErrors.WithLabelValues("venue").Inc()
		c.log.Warn().Err(err).Str("venue_id", venueID).Msg("venue fetch failed")
		return VenueDetail{}, false
	}
	return v, true
}

// FetchCategories returns the id→name category table. Intended to be called
// once per discovery run and threaded through by the caller; failure yields
// an empty map.
func (c *Client) FetchCategories(ctx context.Context) map[string]string {
	var payload struct {
		Categories []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"categories"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/categories/", &payload); err != nil {
		metrics.CatalogErrors.WithLabelValues("categories").Inc()
		c.log.Warn().Err(err).Msg("categories fetch failed")
		return map[string]string{}
	}
	out := make(map[string]string, len(payload.Categories))
	for _, cat := range payload.Categories {
		if cat.ID != "" {
			out[cat.ID] = cat.Name
		}
	}
	return out
}

func (c *Client) getJSON(ctx context.Context, u string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("http status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("payload parse: %w", err)
	}
	return nil
}
