package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Naga-Manohar-Y/EventMind/internal/model"
)

// LLMEnricher is the default enrichment function: two sequential
// chat-completion calls against an OpenAI-compatible endpoint, one producing
// the sales summary and one producing the raw 1-10 score text. The score is
// returned verbatim; validation is the orchestrator's job.
type LLMEnricher struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

type LLMOptions struct {
	BaseURL string // e.g. https://integrate.api.nvidia.com/v1
	APIKey  string
	Model   string        // e.g. meta/llama-3.1-8b-instruct
	Timeout time.Duration // per completion call; 0 = 60s
}

func NewLLMEnricher(opts LLMOptions) (*LLMEnricher, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, fmt.Errorf("enrich: llm base url is required")
	}
	if strings.TrimSpace(opts.Model) == "" {
		return nil, fmt.Errorf("enrich: llm model is required")
	}
	to := opts.Timeout
	if to <= 0 {
		to = 60 * time.Second
	}
	return &LLMEnricher{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		model:   opts.Model,
		http:    &http.Client{Timeout: to},
	}, nil
}

func (e *LLMEnricher) Enrich(ctx context.Context, ec model.EnrichmentContext) (Output, error) {
	summary, err := e.complete(ctx, summaryPrompt(ec))
	if err != nil {
		return Output{}, fmt.Errorf("summary call: %w", err)
	}
	score, err := e.complete(ctx, scorePrompt(ec, summary))
	if err != nil {
		return Output{}, fmt.Errorf("score call: %w", err)
	}
	return Output{Summary: strings.TrimSpace(summary), RawScore: strings.TrimSpace(score)}, nil
}

func summaryPrompt(ec model.EnrichmentContext) string {
	return fmt.Sprintf(
		"Summarize this event in 2-3 concise sales-focused lines for a B2B prospecting team.\n"+
			"Event: %s\nURL: %s\nCity: %s\nFree: %s\nVenue: %s\nCategory: %s\n"+
			"Respond with the summary only.",
		ec.Name, ec.URL, orUnknown(ec.City), yesNo(ec.IsFree),
		orUnknown(ec.VenueName), orUnknown(ec.CategoryName),
	)
}

func scorePrompt(ec model.EnrichmentContext, summary string) string {
	return fmt.Sprintf(
		"Rate this event from 1 to 10 as a lead generation opportunity for a B2B SaaS "+
			"company targeting tech buyers.\n"+
			"- Is Free: %s\n- City: %s\n- Venue: %s\n- Category: %s\n- Summary: %q\n"+
			"Respond only with the number (1-10).",
		yesNo(ec.IsFree), orUnknown(ec.City), orUnknown(ec.VenueName),
		orUnknown(ec.CategoryName), summary,
	)
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func (e *LLMEnricher) complete(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":       e.model,
		"temperature": 0.7,
		"max_tokens":  500,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("http status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("completion parse: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("completion had no choices")
	}
	return out.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
