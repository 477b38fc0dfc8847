package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Naga-Manohar-Y/EventMind/internal/model"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "events.db"), DefaultRetryPolicy(), zerolog.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.InitSchema(context.Background()); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return s
}

func sampleEvent(id string) model.Event {
	return model.Event{
		ID:           id,
		Name:         "DevOps Summit",
		URL:          "https://events.test/e/devops-summit-" + id,
		StartUTC:     "2026-09-12T17:00:00Z",
		City:         "San Francisco",
		Country:      "US",
		IsFree:       true,
		VenueName:    "Moscone Center",
		CategoryName: "Science & Technology",
	}
}

func TestInitSchema_Idempotent(t *testing.T) {
	s := openTestStore(t)
	if err := s.InitSchema(context.Background()); err != nil {
		t.Fatalf("second init: %v", err)
	}
}

func TestInsertIfAbsent_SecondInsertIsNoOp(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ins, err := s.InsertIfAbsent(ctx, sampleEvent("E1"))
	if err != nil || !ins {
		t.Fatalf("first insert: inserted=%v err=%v", ins, err)
	}

	changed := sampleEvent("E1")
	changed.Name = "Totally Different Name"
	ins, err = s.InsertIfAbsent(ctx, changed)
	if err != nil {
		t.Fatalf("duplicate insert must not error: %v", err)
	}
	if ins {
		t.Fatal("duplicate insert reported as inserted")
	}

	ec, err := s.EnrichmentContext(ctx, "E1")
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if ec.Name != "DevOps Summit" {
		t.Fatalf("stored record was overwritten: %q", ec.Name)
	}
	if !ec.IsFree {
		t.Fatal("is_free flag lost")
	}
}

func TestUnenriched_OnlyNullSummaries(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"A", "B", "C"} {
		if _, err := s.InsertIfAbsent(ctx, sampleEvent(id)); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}
	score := 7
	if err := s.UpdateEnrichment(ctx, "B", "a crisp summary", &score); err != nil {
		t.Fatalf("update: %v", err)
	}

	pending, err := s.Unenriched(ctx, 50)
	if err != nil {
		t.Fatalf("unenriched: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("got %d pending, want 2: %+v", len(pending), pending)
	}
	for _, p := range pending {
		if p.ID == "B" {
			t.Fatal("enriched record still selected")
		}
		if p.URL == "" {
			t.Fatal("pending row missing url")
		}
	}
}

func TestUnenriched_RespectsLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"A", "B", "C", "D"} {
		if _, err := s.InsertIfAbsent(ctx, sampleEvent(id)); err != nil {
			t.Fatal(err)
		}
	}
	pending, err := s.Unenriched(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 {
		t.Fatalf("limit ignored: got %d", len(pending))
	}
}

func TestUpdateEnrichment_NullScoreKeepsSummary(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if _, err := s.InsertIfAbsent(ctx, sampleEvent("E1")); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateEnrichment(ctx, "E1", "summary without a score", nil); err != nil {
		t.Fatalf("update: %v", err)
	}

	pending, err := s.Unenriched(ctx, 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Fatalf("record with summary still pending: %+v", pending)
	}
	top, err := s.TopScored(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 0 {
		t.Fatalf("unscored record must not rank: %+v", top)
	}
}

func TestUpdateEnrichment_OutOfRangeScoreStoredAsNull(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if _, err := s.InsertIfAbsent(ctx, sampleEvent("E1")); err != nil {
		t.Fatal(err)
	}
	bad := 15
	if err := s.UpdateEnrichment(ctx, "E1", "still a good summary", &bad); err != nil {
		t.Fatalf("update: %v", err)
	}
	top, err := s.TopScored(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 0 {
		t.Fatalf("out-of-range score persisted: %+v", top)
	}
	pending, err := s.Unenriched(ctx, 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Fatal("summary was not persisted alongside the rejected score")
	}
}

func TestTopScored_OrdersByScoreDesc(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	scores := map[string]int{"A": 3, "B": 9, "C": 6}
	for id, sc := range scores {
		if _, err := s.InsertIfAbsent(ctx, sampleEvent(id)); err != nil {
			t.Fatal(err)
		}
		sc := sc
		if err := s.UpdateEnrichment(ctx, id, "summary "+id, &sc); err != nil {
			t.Fatal(err)
		}
	}
	top, err := s.TopScored(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 3 {
		t.Fatalf("got %d rows", len(top))
	}
	if top[0].ID != "B" || top[1].ID != "C" || top[2].ID != "A" {
		t.Fatalf("wrong order: %s %s %s", top[0].ID, top[1].ID, top[2].ID)
	}
	if top[0].Summary == nil || top[0].LeadScore == nil {
		t.Fatal("scored record must carry both summary and score")
	}
}

func TestEnrichmentContext_NotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.EnrichmentContext(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
