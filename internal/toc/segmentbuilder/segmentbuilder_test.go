package segmentbuilder

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/SpillwaveSolutions/agent-memory/internal/grip"
	"github.com/SpillwaveSolutions/agent-memory/internal/segment"
	"github.com/SpillwaveSolutions/agent-memory/internal/storage"
	"github.com/SpillwaveSolutions/agent-memory/internal/summarize"
	"github.com/SpillwaveSolutions/agent-memory/internal/toc"
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

func putEvent(t *testing.T, s *storage.Storage, sessionID, text string, ts time.Time) types.Event {
	t.Helper()
	e := types.Event{
		EventID:   ulid.MustNew(ulid.Timestamp(ts), nil).String(),
		SessionID: sessionID,
		Timestamp: ts,
		EventType: types.EventUserMessage,
		Role:      types.RoleUser,
		Text:      text,
		Agent:     "agent-a",
	}
	if err := s.Batch(func(txn *storage.Txn) error { return txn.PutEvent(e) }); err != nil {
		t.Fatalf("PutEvent: %v", err)
	}
	return e
}

func TestRunBuildsSegmentOnTokenBoundary(t *testing.T) {
	s := newTestStore(t)
	b := toc.New(s, summarize.NewMock(), grip.New(grip.DefaultExtractConfig()), nil)

	cfg := segment.Config{TimeThresholdMs: int64(30 * time.Minute / time.Millisecond), TokenThreshold: 1}
	job := New(s, b, cfg, time.Hour, nil)

	start := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	putEvent(t, s, "sess-1", "alpha beta gamma delta", start)
	putEvent(t, s, "sess-1", "epsilon zeta eta theta", start.Add(time.Second))

	built, err := job.Run(context.Background(), start.Add(time.Minute))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if built != 1 {
		t.Fatalf("built = %d, want 1 (second event should cross the token boundary)", built)
	}

	reader := toc.NewReader(s, summarize.NewMock())
	root, err := reader.GetTocRoot(context.Background())
	if err != nil {
		t.Fatalf("GetTocRoot: %v", err)
	}
	if len(root) == 0 {
		t.Fatal("expected at least one calendar node to be created")
	}
}

func TestRunIsIdempotentAcrossCheckpoint(t *testing.T) {
	s := newTestStore(t)
	b := toc.New(s, summarize.NewMock(), grip.New(grip.DefaultExtractConfig()), nil)
	job := New(s, b, segment.DefaultConfig(), time.Hour, nil)

	start := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	putEvent(t, s, "sess-1", "hello there", start)

	now := start.Add(time.Minute)
	if _, err := job.Run(context.Background(), now); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	built, err := job.Run(context.Background(), now.Add(time.Minute))
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if built != 0 {
		t.Fatalf("second Run built = %d, want 0 (already-processed event must not be replayed)", built)
	}
}

func TestRunFlushesIdleSessionWithoutBoundary(t *testing.T) {
	s := newTestStore(t)
	b := toc.New(s, summarize.NewMock(), grip.New(grip.DefaultExtractConfig()), nil)
	job := New(s, b, segment.DefaultConfig(), time.Minute, nil)

	start := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	putEvent(t, s, "sess-1", "a single short message", start)

	built, err := job.Run(context.Background(), start.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if built != 1 {
		t.Fatalf("built = %d, want 1 (idle session should flush without a boundary crossing)", built)
	}
}
