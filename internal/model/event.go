// Package model holds the entities shared across the discovery and
// enrichment phases.
package model

// Event is the central record of the pipeline. Discovery fills every field
// except Summary and LeadScore; those two are written later, together, by the
// enrichment phase and are nil until it succeeds for this record.
type Event struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	URL          string `json:"url"`
	StartUTC     string `json:"start_utc"` // ISO-8601, stored as given
	City         string `json:"city"`
	Country      string `json:"country"`
	IsFree       bool   `json:"is_free"`
	VenueName    string `json:"venue_name"`
	CategoryName string `json:"category_name"`

	Summary   *string `json:"summary,omitempty"`
	LeadScore *int    `json:"lead_score,omitempty"` // 1..10; nil when unscored
}

// EnrichmentContext is the descriptive slice of an Event handed to the
// enrichment function, read fresh from the store inside each task.
type EnrichmentContext struct {
	ID           string
	Name         string
	URL          string
	City         string
	IsFree       bool
	VenueName    string
	CategoryName string
}
