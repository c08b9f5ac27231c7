package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/SpillwaveSolutions/agent-memory/internal/storage"
	"github.com/SpillwaveSolutions/agent-memory/internal/types"
)

func newTestStore(t *testing.T) *storage.Storage {
	t.Helper()
	s, err := storage.Open(storage.Config{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newEvent(t *testing.T, ts time.Time) types.Event {
	t.Helper()
	return types.Event{
		EventID:   ulid.MustNew(ulid.Timestamp(ts), nil).String(),
		SessionID: "sess-1",
		Timestamp: ts,
		EventType: types.EventUserMessage,
		Role:      types.RoleUser,
		Text:      "hello there",
	}
}

func TestIngestCreatesEvent(t *testing.T) {
	s := newTestStore(t)
	g := New(s, nil)

	e := newEvent(t, time.Now())
	id, created, err := g.Ingest(context.Background(), e)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if !created {
		t.Fatal("expected created=true on first ingest")
	}
	if id != e.EventID {
		t.Fatalf("id = %q, want %q", id, e.EventID)
	}

	n, err := s.EventCount()
	if err != nil {
		t.Fatalf("EventCount: %v", err)
	}
	if n != 1 {
		t.Fatalf("EventCount = %d, want 1", n)
	}
}

func TestIngestIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	g := New(s, nil)
	e := newEvent(t, time.Now())
	ctx := context.Background()

	if _, created, err := g.Ingest(ctx, e); err != nil || !created {
		t.Fatalf("first ingest: created=%v err=%v", created, err)
	}
	_, created, err := g.Ingest(ctx, e)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if created {
		t.Fatal("expected created=false on duplicate ingest")
	}

	n, _ := s.EventCount()
	if n != 1 {
		t.Fatalf("EventCount = %d, want 1 after duplicate ingest", n)
	}
}

func TestIngestRejectsInvalidEvent(t *testing.T) {
	s := newTestStore(t)
	g := New(s, nil)

	e := newEvent(t, time.Now())
	e.SessionID = ""
	_, _, err := g.Ingest(context.Background(), e)
	if err == nil {
		t.Fatal("expected validation error for empty session_id")
	}
	var fe *types.FieldError
	if !isFieldError(err, &fe) {
		t.Fatalf("expected *types.FieldError, got %T: %v", err, err)
	}
	if fe.Field != "session_id" {
		t.Fatalf("Field = %q, want session_id", fe.Field)
	}
}

func isFieldError(err error, target **types.FieldError) bool {
	fe, ok := err.(*types.FieldError)
	if ok {
		*target = fe
	}
	return ok
}
