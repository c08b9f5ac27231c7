package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/SpillwaveSolutions/agent-memory/internal/types"
)

// APIBackend calls a remote chat-completion style endpoint to produce
// summaries, with capped exponential backoff on transient failures.
type APIBackend struct {
	Provider string
	Model    string
	Key      string
	Base     string

	Client      *http.Client
	MaxRetries  int
	InitialWait time.Duration
	MaxWait     time.Duration
}

var _ Summarizer = (*APIBackend)(nil)

// NewAPIBackend creates an APIBackend from the summarizer configuration
// fields. A nil http.Client defaults to http.DefaultClient.
func NewAPIBackend(provider, model, key, base string) *APIBackend {
	return &APIBackend{
		Provider:    provider,
		Model:       model,
		Key:         key,
		Base:        base,
		Client:      http.DefaultClient,
		MaxRetries:  5,
		InitialWait: 1 * time.Second,
		MaxWait:     30 * time.Second,
	}
}

func (a *APIBackend) SummarizeEvents(ctx context.Context, events []types.Event) (Summary, error) {
	if len(events) == 0 {
		return Summary{}, ErrNoEvents
	}
	var b strings.Builder
	for _, e := range events {
		fmt.Fprintf(&b, "[%s] %s: %s\n", e.Timestamp.Format(time.RFC3339), e.Role, e.Text)
	}
	return a.summarizePrompt(ctx, b.String())
}

func (a *APIBackend) SummarizeChildren(ctx context.Context, children []Summary) (Summary, error) {
	if len(children) == 0 {
		return Summary{}, ErrNoEvents
	}
	var b strings.Builder
	for _, c := range children {
		fmt.Fprintf(&b, "%s: %s\n", c.Title, strings.Join(c.Bullets, "; "))
	}
	return a.summarizePrompt(ctx, b.String())
}

// summarizePrompt sends text to the backend and retries on transient
// failures with capped exponential backoff, mirroring the reconnect
// loop used by the system's networked event sources.
func (a *APIBackend) summarizePrompt(ctx context.Context, text string) (Summary, error) {
	wait := a.InitialWait
	var lastErr error
	for attempt := 0; attempt <= a.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Summary{}, ctx.Err()
			case <-time.After(wait):
			}
			wait = min(wait*2, a.MaxWait)
		}

		raw, err := a.call(ctx, text)
		if err != nil {
			lastErr = err
			if !isTransient(err) {
				return Summary{}, err
			}
			continue
		}

		summary, err := extractSummary(raw)
		if err != nil {
			return Summary{}, err
		}
		return summary, nil
	}
	return Summary{}, fmt.Errorf("%w: %v", ErrTimeout, lastErr)
}

func (a *APIBackend) call(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model":  a.Model,
		"prompt": prompt,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAPI, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.Base, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAPI, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.Key != "" {
		req.Header.Set("Authorization", "Bearer "+a.Key)
	}

	client := a.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAPI, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", ErrRateLimit
	}
	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("%w: status %d", ErrAPI, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%w: status %d (non-retryable)", ErrParse, resp.StatusCode)
	}

	var out bytes.Buffer
	if _, err := out.ReadFrom(resp.Body); err != nil {
		return "", fmt.Errorf("%w: %v", ErrAPI, err)
	}
	return out.String(), nil
}

func isTransient(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrAPI)
}

// extractSummary scans raw for the first balanced JSON object and
// decodes it as a Summary, tolerating surrounding prose the way a chat
// model's response commonly wraps structured output.
func extractSummary(raw string) (Summary, error) {
	obj, ok := firstBalancedJSONObject(raw)
	if !ok {
		return Summary{}, ErrParse
	}

	var payload struct {
		Title    string   `json:"title"`
		Bullets  []string `json:"bullets"`
		Keywords []string `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(obj), &payload); err != nil {
		return Summary{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return Summary{Title: payload.Title, Bullets: payload.Bullets, Keywords: payload.Keywords}, nil
}

// firstBalancedJSONObject finds the first brace-balanced substring in s,
// respecting quoted strings and escapes.
func firstBalancedJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
			// inside a string, braces don't count
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
