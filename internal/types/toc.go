package types

import "time"

// TocLevel identifies a level in the table-of-contents hierarchy.
type TocLevel string

const (
	LevelYear    TocLevel = "Year"
	LevelMonth   TocLevel = "Month"
	LevelWeek    TocLevel = "Week"
	LevelDay     TocLevel = "Day"
	LevelSegment TocLevel = "Segment"
)

// ChildLevel returns the level directly below l, or "" if l is the
// bottom of the hierarchy (Segment).
func (l TocLevel) ChildLevel() TocLevel {
	switch l {
	case LevelYear:
		return LevelMonth
	case LevelMonth:
		return LevelWeek
	case LevelWeek:
		return LevelDay
	case LevelDay:
		return LevelSegment
	default:
		return ""
	}
}

// ParentLevel returns the level directly above l, or "" if l is the top
// of the hierarchy (Year).
func (l TocLevel) ParentLevel() TocLevel {
	switch l {
	case LevelMonth:
		return LevelYear
	case LevelWeek:
		return LevelMonth
	case LevelDay:
		return LevelWeek
	case LevelSegment:
		return LevelDay
	default:
		return ""
	}
}

// Bullet is a single summary claim, anchored to its supporting grips.
type Bullet struct {
	Text    string   `msgpack:"text"`
	GripIDs []string `msgpack:"grip_ids,omitempty"`
}

// TocNode is a versioned, append-only summary record at a calendar level
// or conversation segment. A node is never mutated in place — rollups
// write a new version and update the "latest" pointer.
type TocNode struct {
	NodeID             string    `msgpack:"node_id"`
	Level              TocLevel  `msgpack:"level"`
	Title              string    `msgpack:"title"`
	StartTime          time.Time `msgpack:"start_time"`
	EndTime            time.Time `msgpack:"end_time"`
	Bullets            []Bullet  `msgpack:"bullets"`
	Keywords           []string  `msgpack:"keywords,omitempty"`
	ChildNodeIDs       []string  `msgpack:"child_node_ids,omitempty"`
	Version            int       `msgpack:"version"`
	CreatedAt          time.Time `msgpack:"created_at"`
	ContributingAgents []string  `msgpack:"contributing_agents,omitempty"`
}

// Grip is an immutable provenance anchor linking a bullet to a
// contiguous span of source events.
type Grip struct {
	GripID       string    `msgpack:"grip_id"`
	Excerpt      string    `msgpack:"excerpt"`
	EventIDStart string    `msgpack:"event_id_start"`
	EventIDEnd   string    `msgpack:"event_id_end"`
	Timestamp    time.Time `msgpack:"timestamp"`
	Source       string    `msgpack:"source"`
	TocNodeID    string    `msgpack:"toc_node_id,omitempty"`
}

// Segment is a bounded, contiguous run of events produced by the
// segmenter. Overlap events carry context into summarization only; they
// are never owned by two segments at once.
type Segment struct {
	SegmentID     string  `msgpack:"segment_id"`
	OverlapEvents []Event `msgpack:"overlap_events,omitempty"`
	Events        []Event `msgpack:"events"`
	StartTime     time.Time `msgpack:"start_time"`
	EndTime       time.Time `msgpack:"end_time"`
	TokenCount    int     `msgpack:"token_count"`
}

// AllEvents returns the overlap events followed by the segment's own
// events, the view a summarizer should consume for full context.
func (s Segment) AllEvents() []Event {
	if len(s.OverlapEvents) == 0 {
		return s.Events
	}
	out := make([]Event, 0, len(s.OverlapEvents)+len(s.Events))
	out = append(out, s.OverlapEvents...)
	out = append(out, s.Events...)
	return out
}
