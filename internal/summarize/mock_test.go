package summarize

import (
	"context"
	"testing"
	"time"

	"github.com/SpillwaveSolutions/agent-memory/internal/types"
)

func TestMockSummarizeEventsEmpty(t *testing.T) {
	m := NewMock()
	_, err := m.SummarizeEvents(context.Background(), nil)
	if err != ErrNoEvents {
		t.Fatalf("err = %v, want ErrNoEvents", err)
	}
}

func TestMockSummarizeEventsProducesBoundedFields(t *testing.T) {
	m := NewMock()
	events := []types.Event{
		{EventID: "1", SessionID: "s", Timestamp: time.Now(), EventType: types.EventUserMessage, Role: types.RoleUser, Text: "we discussed the deployment pipeline issues at length today"},
		{EventID: "2", SessionID: "s", Timestamp: time.Now(), EventType: types.EventAssistantMsg, Role: types.RoleAssistant, Text: "the pipeline failure was caused by a flaky test"},
		{EventID: "3", SessionID: "s", Timestamp: time.Now(), EventType: types.EventUserMessage, Role: types.RoleUser, Text: "ok thanks"},
	}
	sum, err := m.SummarizeEvents(context.Background(), events)
	if err != nil {
		t.Fatalf("SummarizeEvents: %v", err)
	}
	if sum.Title == "" {
		t.Fatal("expected non-empty title")
	}
	if len(sum.Bullets) < 3 || len(sum.Bullets) > 5 {
		t.Fatalf("Bullets = %d, want 3-5", len(sum.Bullets))
	}
	if len(sum.Keywords) < 3 || len(sum.Keywords) > 7 {
		t.Fatalf("Keywords = %d, want 3-7", len(sum.Keywords))
	}
}

func TestMockSummarizeEventsIsDeterministic(t *testing.T) {
	m := NewMock()
	events := []types.Event{
		{EventID: "1", SessionID: "s", Timestamp: time.Now(), Text: "alpha beta gamma delta"},
		{EventID: "2", SessionID: "s", Timestamp: time.Now(), Text: "alpha beta epsilon"},
	}
	a, err := m.SummarizeEvents(context.Background(), events)
	if err != nil {
		t.Fatalf("SummarizeEvents: %v", err)
	}
	b, err := m.SummarizeEvents(context.Background(), events)
	if err != nil {
		t.Fatalf("SummarizeEvents: %v", err)
	}
	if a.Title != b.Title {
		t.Fatalf("non-deterministic title: %q vs %q", a.Title, b.Title)
	}
}

func TestMockSummarizeChildren(t *testing.T) {
	m := NewMock()
	children := []Summary{
		{Title: "morning standup notes", Bullets: []string{"discussed blockers", "reviewed pr queue"}, Keywords: []string{"standup", "blockers"}},
		{Title: "afternoon debugging session", Bullets: []string{"traced the race condition", "added a regression test"}, Keywords: []string{"race", "debugging"}},
	}
	sum, err := m.SummarizeChildren(context.Background(), children)
	if err != nil {
		t.Fatalf("SummarizeChildren: %v", err)
	}
	if sum.Title == "" {
		t.Fatal("expected non-empty title")
	}
}

func TestMockSummarizeChildrenEmpty(t *testing.T) {
	m := NewMock()
	_, err := m.SummarizeChildren(context.Background(), nil)
	if err != ErrNoEvents {
		t.Fatalf("err = %v, want ErrNoEvents", err)
	}
}
