// Package enrich drives the second phase of the pipeline: selecting records
// that lack a summary, fanning them out across a small worker pool to an
// enrichment function, and writing results back through the store.
package enrich

import (
	"context"
	"strconv"
	"strings"

	"github.com/Naga-Manohar-Y/EventMind/internal/model"
)

// Output is what an enrichment function produces for one record: a derived
// summary and the raw score text. RawScore is "" when the function produced
// no score at all; validation of the text happens here, not in the function.
type Output struct {
	Summary  string
	RawScore string
}

// Enricher derives a summary and lead score for one event. Implementations
// may take seconds and perform their own network calls; any error means the
// record must be left untouched.
type Enricher interface {
	Enrich(ctx context.Context, ec model.EnrichmentContext) (Output, error)
}

// EnricherFunc adapts a plain function to the Enricher interface.
type EnricherFunc func(ctx context.Context, ec model.EnrichmentContext) (Output, error)

func (f EnricherFunc) Enrich(ctx context.Context, ec model.EnrichmentContext) (Output, error) {
	return f(ctx, ec)
}

// scoreReason tags why a raw score did or did not validate. The non-numeric
// and out-of-range cases are logged distinctly.
type scoreReason string

const (
	scoreOK         scoreReason = "ok"
	scoreAbsent     scoreReason = "absent"
	scoreNonNumeric scoreReason = "non_numeric"
	scoreOutOfRange scoreReason = "out_of_range"
)

// parseScore validates raw score text. Anything other than an integer in
// [1,10] yields a nil score; the caller still persists the summary.
func parseScore(raw string) (*int, scoreReason) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, scoreAbsent
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, scoreNonNumeric
	}
	if n < 1 || n > 10 {
		return nil, scoreOutOfRange
	}
	return &n, scoreOK
}
