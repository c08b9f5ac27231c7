package segment

import (
	"testing"
	"time"

	"github.com/SpillwaveSolutions/agent-memory/internal/types"
)

func mkEvent(offset time.Duration, text string) types.Event {
	return types.Event{
		EventID:   "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		SessionID: "s1",
		Timestamp: time.Unix(0, 0).Add(offset),
		EventType: types.EventUserMessage,
		Role:      types.RoleUser,
		Text:      text,
	}
}

func TestNoBoundaryWithinThresholds(t *testing.T) {
	s := New(DefaultConfig())
	for i := 0; i < 5; i++ {
		if seg, ok := s.Add(mkEvent(time.Duration(i)*time.Minute, "hello world")); ok {
			t.Fatalf("unexpected boundary at event %d: %+v", i, seg)
		}
	}
	seg := s.Flush()
	if seg == nil || len(seg.Events) != 5 {
		t.Fatalf("Flush() = %+v, want 5 events", seg)
	}
}

func TestTimeBoundaryEmitsSegment(t *testing.T) {
	cfg := DefaultConfig()
	s := New(cfg)
	s.Add(mkEvent(0, "first"))
	seg, ok := s.Add(mkEvent(time.Duration(cfg.TimeThresholdMs+1)*time.Millisecond, "second"))
	if !ok || seg == nil {
		t.Fatal("expected a time boundary to emit a segment")
	}
	if len(seg.Events) != 1 {
		t.Fatalf("completed segment has %d events, want 1", len(seg.Events))
	}
	tail := s.Flush()
	if tail == nil || len(tail.Events) != 1 {
		t.Fatalf("tail segment = %+v, want 1 event", tail)
	}
}

func TestTokenBoundaryEmitsSegment(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TokenThreshold = 5
	s := New(cfg)
	s.Add(mkEvent(0, "aaaa bbbb cccc"))
	seg, ok := s.Add(mkEvent(time.Minute, "dddd eeee ffff"))
	if !ok || seg == nil {
		t.Fatal("expected a token boundary to emit a segment")
	}
}

func TestOverlapSeedsNextSegment(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OverlapTimeMs = int64(10 * time.Minute / time.Millisecond)
	cfg.OverlapTokens = 1000
	s := New(cfg)
	s.Add(mkEvent(0, "alpha"))
	s.Add(mkEvent(5*time.Minute, "beta"))
	_, ok := s.Add(mkEvent(5*time.Minute+time.Duration(cfg.TimeThresholdMs+1)*time.Millisecond, "gamma"))
	if !ok {
		t.Fatal("expected boundary")
	}
	tail := s.Flush()
	if len(tail.OverlapEvents) == 0 {
		t.Fatal("expected overlap events seeded from the prior segment's tail")
	}
}

func TestFlushWithNoEventsReturnsNil(t *testing.T) {
	s := New(DefaultConfig())
	if seg := s.Flush(); seg != nil {
		t.Fatalf("Flush() on empty segmenter = %+v, want nil", seg)
	}
}
