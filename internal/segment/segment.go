// Package segment implements the Segmenter: it consumes events in
// arrival order and emits bounded Segments, seeding overlap context
// across the boundary so summarization on either side has continuity.
package segment

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/SpillwaveSolutions/agent-memory/internal/tokenize"
	"github.com/SpillwaveSolutions/agent-memory/internal/types"
)

// Config tunes boundary detection. Zero values are replaced by
// DefaultConfig's defaults where noted.
type Config struct {
	TimeThresholdMs   int64
	TokenThreshold    int
	OverlapTimeMs     int64
	OverlapTokens     int
	ToolResultCharCap int
}

// DefaultConfig returns the defaults named in the segmentation design.
func DefaultConfig() Config {
	return Config{
		TimeThresholdMs:   30 * 60 * 1000,
		TokenThreshold:    4000,
		OverlapTimeMs:     5 * 60 * 1000,
		OverlapTokens:     500,
		ToolResultCharCap: 1000,
	}
}

// Segmenter accumulates events into the current segment and reports a
// completed Segment whenever a boundary is crossed. It is not safe for
// concurrent use — feed it events from a single goroutine in timestamp
// order.
type Segmenter struct {
	cfg Config

	segmentID ulid.ULID
	overlap   []types.Event
	events    []types.Event
	tokens    int
	hasEvents bool
}

// New creates a Segmenter with cfg. A zero Config is replaced field-by-
// field with DefaultConfig's values.
func New(cfg Config) *Segmenter {
	d := DefaultConfig()
	if cfg.TimeThresholdMs == 0 {
		cfg.TimeThresholdMs = d.TimeThresholdMs
	}
	if cfg.TokenThreshold == 0 {
		cfg.TokenThreshold = d.TokenThreshold
	}
	if cfg.OverlapTimeMs == 0 {
		cfg.OverlapTimeMs = d.OverlapTimeMs
	}
	if cfg.OverlapTokens == 0 {
		cfg.OverlapTokens = d.OverlapTokens
	}
	if cfg.ToolResultCharCap == 0 {
		cfg.ToolResultCharCap = d.ToolResultCharCap
	}
	return &Segmenter{cfg: cfg}
}

// Add feeds one event to the segmenter. If adding e crosses a boundary,
// the just-completed segment is returned with ok=true and e becomes the
// first event of the next segment. Otherwise ok is false and e has been
// folded into the in-progress segment.
func (s *Segmenter) Add(e types.Event) (seg *types.Segment, ok bool) {
	tokens := tokenCount(e, s.cfg.ToolResultCharCap)

	if s.hasEvents {
		last := s.events[len(s.events)-1]
		timeBoundary := e.Timestamp.Sub(last.Timestamp).Milliseconds() > s.cfg.TimeThresholdMs
		tokenBoundary := s.tokens+tokens > s.cfg.TokenThreshold
		if timeBoundary || tokenBoundary {
			completed := s.build()
			s.startNext(completed)
			s.append(e, tokens)
			return completed, true
		}
	} else {
		s.segmentID = newSegmentID(e.Timestamp)
	}

	s.append(e, tokens)
	return nil, false
}

// Flush closes and returns the tail segment, or nil if no events have
// been accumulated.
func (s *Segmenter) Flush() *types.Segment {
	if !s.hasEvents {
		return nil
	}
	return s.build()
}

func (s *Segmenter) append(e types.Event, tokens int) {
	s.events = append(s.events, e)
	s.tokens += tokens
	s.hasEvents = true
}

func (s *Segmenter) build() *types.Segment {
	seg := &types.Segment{
		SegmentID:     s.segmentID.String(),
		OverlapEvents: s.overlap,
		Events:        s.events,
		StartTime:     s.events[0].Timestamp,
		EndTime:       s.events[len(s.events)-1].Timestamp,
		TokenCount:    s.tokens,
	}
	return seg
}

// startNext resets accumulator state for a new segment, seeding its
// overlap from the trailing events of the just-completed one.
func (s *Segmenter) startNext(completed *types.Segment) {
	s.overlap = trailingOverlap(completed.Events, s.cfg.OverlapTimeMs, s.cfg.OverlapTokens, s.cfg.ToolResultCharCap)
	s.events = nil
	s.tokens = 0
	s.hasEvents = false
	s.segmentID = newSegmentID(completed.EndTime)
}

// trailingOverlap selects the trailing events of events whose cumulative
// time-from-end is within maxTimeMs and whose cumulative tokens are
// within maxTokens, preserving arrival order.
func trailingOverlap(events []types.Event, maxTimeMs int64, maxTokens, toolResultCharCap int) []types.Event {
	if len(events) == 0 {
		return nil
	}
	end := events[len(events)-1].Timestamp
	var picked []types.Event
	tokens := 0
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		if end.Sub(e.Timestamp).Milliseconds() > maxTimeMs {
			break
		}
		t := tokenCount(e, toolResultCharCap)
		if tokens+t > maxTokens {
			break
		}
		tokens += t
		picked = append([]types.Event{e}, picked...)
	}
	return picked
}

func tokenCount(e types.Event, toolResultCharCap int) int {
	text := e.Text
	if e.EventType == types.EventToolResult && len(text) > toolResultCharCap {
		text = text[:toolResultCharCap]
	}
	return tokenize.EstimateTokens(text)
}

func newSegmentID(t time.Time) ulid.ULID {
	return ulid.MustNew(ulid.Timestamp(t), rand.Reader)
}
