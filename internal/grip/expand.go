package grip

import (
	"context"
	"errors"
	"time"

	"github.com/SpillwaveSolutions/agent-memory/internal/storage"
	"github.com/SpillwaveSolutions/agent-memory/internal/types"
)

// Errors matching the Grip Expander failure taxonomy.
var (
	ErrGripNotFound  = errors.New("grip: not found")
	ErrEventNotFound = errors.New("grip: event not found")
)

// ExpandConfig tunes how far the expander reaches around a grip.
type ExpandConfig struct {
	MaxBefore     time.Duration
	MaxAfter      time.Duration
	BeforeCount   int
	AfterCount    int
}

// DefaultExpandConfig returns the expansion defaults: a 60-second window
// on each side of the grip's start/end events, truncated to 3 events
// each side.
func DefaultExpandConfig() ExpandConfig {
	return ExpandConfig{
		MaxBefore:   60 * time.Second,
		MaxAfter:    60 * time.Second,
		BeforeCount: 3,
		AfterCount:  3,
	}
}

// ExpandedGrip is the windowed view of a grip's surrounding events.
type ExpandedGrip struct {
	Grip          types.Grip
	EventsBefore  []types.Event
	ExcerptEvents []types.Event
	EventsAfter   []types.Event
}

// Expander resolves a grip and its surrounding event window.
type Expander struct {
	store *storage.Storage
	cfg   ExpandConfig
}

// NewExpander creates an Expander over store with cfg.
func NewExpander(store *storage.Storage, cfg ExpandConfig) *Expander {
	d := DefaultExpandConfig()
	if cfg.MaxBefore == 0 {
		cfg.MaxBefore = d.MaxBefore
	}
	if cfg.MaxAfter == 0 {
		cfg.MaxAfter = d.MaxAfter
	}
	if cfg.BeforeCount == 0 {
		cfg.BeforeCount = d.BeforeCount
	}
	if cfg.AfterCount == 0 {
		cfg.AfterCount = d.AfterCount
	}
	return &Expander{store: store, cfg: cfg}
}

// Expand resolves gripID, derives its time window, and partitions the
// events found in that window into before/excerpt/after, each truncated
// to the configured count.
func (x *Expander) Expand(ctx context.Context, gripID string, before, after int) (ExpandedGrip, error) {
	if err := ctx.Err(); err != nil {
		return ExpandedGrip{}, err
	}
	if before <= 0 {
		before = x.cfg.BeforeCount
	}
	if after <= 0 {
		after = x.cfg.AfterCount
	}

	g, err := x.store.GetGrip(gripID)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return ExpandedGrip{}, ErrGripNotFound
		}
		return ExpandedGrip{}, err
	}

	startEvent, err := x.findEvent(g.EventIDStart, g.Timestamp)
	if err != nil {
		return ExpandedGrip{}, err
	}
	endEvent, err := x.findEvent(g.EventIDEnd, g.Timestamp)
	if err != nil {
		return ExpandedGrip{}, err
	}

	windowStart := startEvent.Timestamp.Add(-x.cfg.MaxBefore)
	windowEnd := endEvent.Timestamp.Add(x.cfg.MaxAfter)
	events, err := x.store.GetEventsInRange(windowStart.UnixMilli(), windowEnd.UnixMilli())
	if err != nil {
		return ExpandedGrip{}, err
	}

	var evBefore, excerpt, evAfter []types.Event
	for _, e := range events {
		switch {
		case e.Timestamp.Before(startEvent.Timestamp):
			evBefore = append(evBefore, e)
		case e.Timestamp.After(endEvent.Timestamp):
			evAfter = append(evAfter, e)
		default:
			excerpt = append(excerpt, e)
		}
	}

	evBefore = truncateTail(evBefore, before)
	evAfter = truncateHead(evAfter, after)

	return ExpandedGrip{
		Grip:          g,
		EventsBefore:  evBefore,
		ExcerptEvents: excerpt,
		EventsAfter:   evAfter,
	}, nil
}

func (x *Expander) findEvent(eventID string, near time.Time) (types.Event, error) {
	window := 24 * time.Hour
	events, err := x.store.GetEventsInRange(near.Add(-window).UnixMilli(), near.Add(window).UnixMilli())
	if err != nil {
		return types.Event{}, err
	}
	for _, e := range events {
		if e.EventID == eventID {
			return e, nil
		}
	}
	return types.Event{}, ErrEventNotFound
}

// truncateTail keeps the last n elements (closest to the grip).
func truncateTail(events []types.Event, n int) []types.Event {
	if len(events) <= n {
		return events
	}
	return events[len(events)-n:]
}

// truncateHead keeps the first n elements (closest to the grip).
func truncateHead(events []types.Event, n int) []types.Event {
	if len(events) <= n {
		return events
	}
	return events[:n]
}
