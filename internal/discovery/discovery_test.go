package discovery

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Naga-Manohar-Y/EventMind/internal/catalog"
	"github.com/Naga-Manohar-Y/EventMind/internal/crawl"
	"github.com/Naga-Manohar-Y/EventMind/internal/store"
)

type fakeCollector struct {
	ids []string
	err error
}

func (f fakeCollector) Collect(ctx context.Context, q crawl.Query) ([]string, error) {
	return f.ids, f.err
}

type fakeCatalog struct {
	events     map[string]catalog.EventDetail
	venues     map[string]catalog.VenueDetail
	categories map[string]string

	categoryCalls int
}

func (f *fakeCatalog) FetchEvent(ctx context.Context, id string) (catalog.EventDetail, bool) {
	d, ok := f.events[id]
	return d, ok
}

func (f *fakeCatalog) FetchVenue(ctx context.Context, id string) (catalog.VenueDetail, bool) {
	v, ok := f.venues[id]
	return v, ok
}

func (f *fakeCatalog) FetchCategories(ctx context.Context) map[string]string {
	f.categoryCalls++
	return f.categories
}

func eventDetail(id, venueID, categoryID string, online bool) catalog.EventDetail {
	var d catalog.EventDetail
	d.ID = id
	d.Name.Text = "Event " + id
	d.URL = "https://events.test/e/event-" + id
	d.Start.UTC = "2026-09-12T17:00:00Z"
	d.IsFree = true
	d.OnlineEvent = online
	d.VenueID = venueID
	d.CategoryID = categoryID
	return d
}

func venueDetail(name, city, country string) catalog.VenueDetail {
	var v catalog.VenueDetail
	v.Name = name
	v.Address.City = city
	v.Address.Country = country
	return v
}

func openStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.OpenSQLite(filepath.Join(t.TempDir(), "events.db"), store.DefaultRetryPolicy(), zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.InitSchema(context.Background()); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return s
}

func TestRun_PersistsEligibleEvents(t *testing.T) {
	st := openStore(t)
	cat := &fakeCatalog{
		events: map[string]catalog.EventDetail{
			"1": eventDetail("1", "v1", "102", false),
		},
		venues: map[string]catalog.VenueDetail{
			"v1": venueDetail("Moscone Center", "San Francisco", "US"),
		},
		categories: map[string]string{"102": "Science & Technology"},
	}
	r := &Runner{
		Collector: fakeCollector{ids: []string{"1"}},
		Catalog:   cat,
		Store:     st,
		Log:       zerolog.Nop(),
	}

	sum, err := r.Run(context.Background(), crawl.Query{State: "CA", City: "San Francisco", Category: "tech", MaxEvents: 10})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Inserted != 1 || sum.Collected != 1 {
		t.Fatalf("summary: %+v", sum)
	}
	if cat.categoryCalls != 1 {
		t.Fatalf("categories fetched %d times, want once per run", cat.categoryCalls)
	}

	ec, err := st.EnrichmentContext(context.Background(), "1")
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if ec.City != "San Francisco" || ec.VenueName != "Moscone Center" || ec.CategoryName != "Science & Technology" {
		t.Fatalf("venue/category not resolved: %+v", ec)
	}
}

func TestRun_FiltersOnlineAndVenueless(t *testing.T) {
	st := openStore(t)
	cat := &fakeCatalog{
		events: map[string]catalog.EventDetail{
			"online":  eventDetail("online", "v1", "102", true),
			"novenue": eventDetail("novenue", "", "102", false),
		},
		categories: map[string]string{},
	}
	r := &Runner{
		Collector: fakeCollector{ids: []string{"online", "novenue"}},
		Catalog:   cat,
		Store:     st,
		Log:       zerolog.Nop(),
	}

	sum, err := r.Run(context.Background(), crawl.Query{MaxEvents: 10})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Inserted != 0 || sum.Ineligible != 2 {
		t.Fatalf("summary: %+v", sum)
	}
	if pending, _ := st.Unenriched(context.Background(), 50); len(pending) != 0 {
		t.Fatal("ineligible events were persisted")
	}
}

func TestRun_SkipsIdentifiersWithoutData(t *testing.T) {
	st := openStore(t)
	cat := &fakeCatalog{
		events: map[string]catalog.EventDetail{
			"good": eventDetail("good", "v1", "", false),
		},
		venues:     map[string]catalog.VenueDetail{},
		categories: map[string]string{},
	}
	r := &Runner{
		Collector: fakeCollector{ids: []string{"gone", "good"}},
		Catalog:   cat,
		Store:     st,
		Log:       zerolog.Nop(),
	}

	sum, err := r.Run(context.Background(), crawl.Query{MaxEvents: 10})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.SkippedData != 1 || sum.Inserted != 1 {
		t.Fatalf("summary: %+v", sum)
	}
}

func TestRun_UnresolvedVenueLeavesEmptyFields(t *testing.T) {
	st := openStore(t)
	cat := &fakeCatalog{
		events: map[string]catalog.EventDetail{
			"1": eventDetail("1", "v-unreachable", "102", false),
		},
		venues:     map[string]catalog.VenueDetail{}, // venue fetch fails
		categories: map[string]string{},              // category unmapped
	}
	r := &Runner{
		Collector: fakeCollector{ids: []string{"1"}},
		Catalog:   cat,
		Store:     st,
		Log:       zerolog.Nop(),
	}

	if _, err := r.Run(context.Background(), crawl.Query{MaxEvents: 10}); err != nil {
		t.Fatalf("run: %v", err)
	}
	ec, err := st.EnrichmentContext(context.Background(), "1")
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if ec.City != "" || ec.VenueName != "" || ec.CategoryName != "" {
		t.Fatalf("expected empty venue/category fields: %+v", ec)
	}
}

func TestRun_DuplicatesCountedNotFatal(t *testing.T) {
	st := openStore(t)
	cat := &fakeCatalog{
		events: map[string]catalog.EventDetail{
			"1": eventDetail("1", "v1", "", false),
		},
		venues:     map[string]catalog.VenueDetail{},
		categories: map[string]string{},
	}
	r := &Runner{
		Collector: fakeCollector{ids: []string{"1"}},
		Catalog:   cat,
		Store:     st,
		Log:       zerolog.Nop(),
	}

	if _, err := r.Run(context.Background(), crawl.Query{MaxEvents: 10}); err != nil {
		t.Fatal(err)
	}
	sum, err := r.Run(context.Background(), crawl.Query{MaxEvents: 10})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if sum.Duplicates != 1 || sum.Inserted != 0 {
		t.Fatalf("summary: %+v", sum)
	}
}

func TestRun_CrawlFailureIsFatal(t *testing.T) {
	st := openStore(t)
	r := &Runner{
		Collector: fakeCollector{err: errors.New("browser session died")},
		Catalog:   &fakeCatalog{},
		Store:     st,
		Log:       zerolog.Nop(),
	}
	if _, err := r.Run(context.Background(), crawl.Query{MaxEvents: 10}); err == nil {
		t.Fatal("expected fatal error")
	}
}
