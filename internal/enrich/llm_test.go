package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Naga-Manohar-Y/EventMind/internal/model"
)

func TestLLMEnricher_TwoSequentialCalls(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer k" {
			t.Errorf("missing api key header, got %q", got)
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("model = %q", req.Model)
		}

		content := "A tight two-line summary."
		if calls == 2 {
			if !strings.Contains(req.Messages[0].Content, "A tight two-line summary.") {
				t.Error("score prompt should include the produced summary")
			}
			content = " 8 "
		}
		fmt.Fprintf(w, `{"choices":[{"message":{"content":%q}}]}`, content)
	}))
	defer srv.Close()

	e, err := NewLLMEnricher(LLMOptions{BaseURL: srv.URL, APIKey: "k", Model: "test-model"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	out, err := e.Enrich(context.Background(), model.EnrichmentContext{
		ID: "E1", Name: "Event", URL: "https://events.test/e/event-1", City: "Austin",
	})
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
	if out.Summary != "A tight two-line summary." {
		t.Fatalf("summary = %q", out.Summary)
	}
	if out.RawScore != "8" {
		t.Fatalf("raw score = %q", out.RawScore)
	}
}

func TestLLMEnricher_UpstreamErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	e, err := NewLLMEnricher(LLMOptions{BaseURL: srv.URL, Model: "m"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := e.Enrich(context.Background(), model.EnrichmentContext{ID: "E1"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewLLMEnricher_RequiresConfig(t *testing.T) {
	if _, err := NewLLMEnricher(LLMOptions{Model: "m"}); err == nil {
		t.Fatal("missing base url should error")
	}
	if _, err := NewLLMEnricher(LLMOptions{BaseURL: "http://x"}); err == nil {
		t.Fatal("missing model should error")
	}
}
