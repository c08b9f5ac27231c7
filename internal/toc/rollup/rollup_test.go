package rollup

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/SpillwaveSolutions/agent-memory/internal/grip"
	"github.com/SpillwaveSolutions/agent-memory/internal/storage"
	"github.com/SpillwaveSolutions/agent-memory/internal/summarize"
	"github.com/SpillwaveSolutions/agent-memory/internal/toc"
	"github.com/SpillwaveSolutions/agent-memory/internal/types"
)

func scanAllOutbox(t *testing.T, s *storage.Storage) []types.OutboxEntry {
	t.Helper()
	entries, err := s.ScanOutboxAfter(0, 1000)
	if err != nil {
		t.Fatalf("ScanOutboxAfter: %v", err)
	}
	return entries
}

func newTestStore(t *testing.T) *storage.Storage {
	t.Helper()
	s, err := storage.Open(storage.Config{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mkSegment(start time.Time) types.Segment {
	id := ulid.MustNew(ulid.Timestamp(start), nil)
	return types.Segment{
		SegmentID: id.String(),
		StartTime: start,
		EndTime:   start.Add(time.Minute),
		Events: []types.Event{
			{EventID: ulid.MustNew(ulid.Timestamp(start), nil).String(), SessionID: "s", Timestamp: start, EventType: types.EventUserMessage, Role: types.RoleUser, Text: "we reviewed the quarterly retrieval benchmarks", Agent: "agent-a"},
			{EventID: ulid.MustNew(ulid.Timestamp(start.Add(time.Second)), nil).String(), SessionID: "s", Timestamp: start.Add(time.Second), EventType: types.EventAssistantMsg, Role: types.RoleAssistant, Text: "the retrieval benchmarks improved after the fusion change", Agent: "agent-a"},
		},
	}
}

func TestRunRollsUpOldEnoughDay(t *testing.T) {
	s := newTestStore(t)
	b := toc.New(s, summarize.NewMock(), grip.New(grip.DefaultExtractConfig()), nil)

	day := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	if _, err := b.Build(context.Background(), mkSegment(day)); err != nil {
		t.Fatalf("Build: %v", err)
	}

	before, err := s.GetTocNode(storage.DayNodeID(day))
	if err != nil {
		t.Fatalf("GetTocNode: %v", err)
	}

	job := New(types.LevelDay, s, summarize.NewMock(), nil)
	now := day.Add(26 * time.Hour)
	processed, err := job.Run(context.Background(), now)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if processed != 1 {
		t.Fatalf("processed = %d, want 1", processed)
	}

	after, err := s.GetTocNode(storage.DayNodeID(day))
	if err != nil {
		t.Fatalf("GetTocNode after: %v", err)
	}
	if after.Version != before.Version+1 {
		t.Fatalf("Version = %d, want %d", after.Version, before.Version+1)
	}

	cp, err := s.GetCheckpoint(job.Name())
	if err != nil {
		t.Fatalf("GetCheckpoint: %v", err)
	}
	if !cp.LastProcessedTime.Equal(before.StartTime) {
		t.Fatalf("checkpoint = %v, want %v", cp.LastProcessedTime, before.StartTime)
	}
}

func TestRunSkipsNodesYoungerThanMinAge(t *testing.T) {
	s := newTestStore(t)
	b := toc.New(s, summarize.NewMock(), grip.New(grip.DefaultExtractConfig()), nil)

	day := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	if _, err := b.Build(context.Background(), mkSegment(day)); err != nil {
		t.Fatalf("Build: %v", err)
	}

	job := New(types.LevelDay, s, summarize.NewMock(), nil)
	processed, err := job.Run(context.Background(), day.Add(time.Minute))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if processed != 0 {
		t.Fatalf("processed = %d, want 0 (too young)", processed)
	}
}

func TestRunIsIdempotentAfterCheckpointAdvances(t *testing.T) {
	s := newTestStore(t)
	b := toc.New(s, summarize.NewMock(), grip.New(grip.DefaultExtractConfig()), nil)

	day := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	if _, err := b.Build(context.Background(), mkSegment(day)); err != nil {
		t.Fatalf("Build: %v", err)
	}

	job := New(types.LevelDay, s, summarize.NewMock(), nil)
	now := day.Add(26 * time.Hour)
	if _, err := job.Run(context.Background(), now); err != nil {
		t.Fatalf("Run 1: %v", err)
	}
	processed, err := job.Run(context.Background(), now)
	if err != nil {
		t.Fatalf("Run 2: %v", err)
	}
	if processed != 0 {
		t.Fatalf("second run processed = %d, want 0 (checkpoint already past this node)", processed)
	}
}

func TestRunEnqueuesFollowUpOutboxEntry(t *testing.T) {
	s := newTestStore(t)
	b := toc.New(s, summarize.NewMock(), grip.New(grip.DefaultExtractConfig()), nil)

	day := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	if _, err := b.Build(context.Background(), mkSegment(day)); err != nil {
		t.Fatalf("Build: %v", err)
	}

	entriesBefore := scanAllOutbox(t, s)

	job := New(types.LevelDay, s, summarize.NewMock(), nil)
	if _, err := job.Run(context.Background(), day.Add(26*time.Hour)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	entriesAfter := scanAllOutbox(t, s)
	if len(entriesAfter) != len(entriesBefore)+1 {
		t.Fatalf("outbox entries = %d, want %d", len(entriesAfter), len(entriesBefore)+1)
	}
	last := entriesAfter[len(entriesAfter)-1]
	if last.EventID != storage.DayNodeID(day) {
		t.Fatalf("EventID = %q, want day node id", last.EventID)
	}
}
