package storage

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/SpillwaveSolutions/agent-memory/internal/types"
)

// Node-id grammar (spec.md §6):
//
//	toc:year:{YYYY}
//	toc:month:{YYYY}:{MM}
//	toc:week:{ISO_YEAR}:W{WW}
//	toc:day:{YYYY-MM-DD}
//	toc:segment:{YYYY-MM-DD}:{ulid}

// YearNodeID returns the node id for the Year containing t.
func YearNodeID(t time.Time) string {
	return fmt.Sprintf("toc:year:%04d", t.UTC().Year())
}

// MonthNodeID returns the node id for the Month containing t.
func MonthNodeID(t time.Time) string {
	u := t.UTC()
	return fmt.Sprintf("toc:month:%04d:%02d", u.Year(), int(u.Month()))
}

// WeekNodeID returns the node id for the ISO week containing t.
func WeekNodeID(t time.Time) string {
	isoYear, isoWeek := t.UTC().ISOWeek()
	return fmt.Sprintf("toc:week:%04d:W%02d", isoYear, isoWeek)
}

// DayNodeID returns the node id for the UTC calendar day containing t.
func DayNodeID(t time.Time) string {
	return fmt.Sprintf("toc:day:%s", t.UTC().Format("2006-01-02"))
}

// SegmentNodeID returns a fresh node id for a segment anchored on the
// UTC day containing t.
func SegmentNodeID(t time.Time, id ulid.ULID) string {
	return fmt.Sprintf("toc:segment:%s:%s", t.UTC().Format("2006-01-02"), id.String())
}

// LevelOf inspects a node id's prefix and returns its TOC level.
func LevelOf(nodeID string) (types.TocLevel, error) {
	switch {
	case strings.HasPrefix(nodeID, "toc:year:"):
		return types.LevelYear, nil
	case strings.HasPrefix(nodeID, "toc:month:"):
		return types.LevelMonth, nil
	case strings.HasPrefix(nodeID, "toc:week:"):
		return types.LevelWeek, nil
	case strings.HasPrefix(nodeID, "toc:day:"):
		return types.LevelDay, nil
	case strings.HasPrefix(nodeID, "toc:segment:"):
		return types.LevelSegment, nil
	default:
		return "", fmt.Errorf("unrecognized node id %q", nodeID)
	}
}

// CalendarBounds returns the [start, end) time window a calendar-level
// node id covers. ISO week uses the Monday-to-Monday convention; Day,
// Month and Year use UTC calendar boundaries. Segment nodes have no
// derivable bounds from their id alone and return an error.
func CalendarBounds(nodeID string) (start, end time.Time, err error) {
	level, err := LevelOf(nodeID)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	parts := strings.Split(nodeID, ":")
	switch level {
	case types.LevelYear:
		year, err := strconv.Atoi(parts[2])
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid year node id %q: %w", nodeID, err)
		}
		start = time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(1, 0, 0)
		return start, end, nil
	case types.LevelMonth:
		year, err1 := strconv.Atoi(parts[2])
		month, err2 := strconv.Atoi(parts[3])
		if err1 != nil || err2 != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid month node id %q", nodeID)
		}
		start = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0)
		return start, end, nil
	case types.LevelWeek:
		isoYear, err1 := strconv.Atoi(parts[2])
		wk := strings.TrimPrefix(parts[3], "W")
		isoWeek, err2 := strconv.Atoi(wk)
		if err1 != nil || err2 != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid week node id %q", nodeID)
		}
		start = isoWeekStart(isoYear, isoWeek)
		end = start.AddDate(0, 0, 7)
		return start, end, nil
	case types.LevelDay:
		day, err := time.Parse("2006-01-02", parts[2])
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid day node id %q: %w", nodeID, err)
		}
		start = day
		end = start.AddDate(0, 0, 1)
		return start, end, nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("node id %q has no derivable calendar bounds", nodeID)
	}
}

// isoWeekStart returns the UTC midnight of the Monday that begins the
// given ISO year/week.
func isoWeekStart(isoYear, isoWeek int) time.Time {
	// Jan 4th is always in ISO week 1.
	jan4 := time.Date(isoYear, 1, 4, 0, 0, 0, 0, time.UTC)
	_, wd := jan4.ISOWeek()
	_ = wd
	// Find the Monday of week 1.
	weekday := int(jan4.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	mondayWeek1 := jan4.AddDate(0, 0, -(weekday - 1))
	return mondayWeek1.AddDate(0, 0, (isoWeek-1)*7)
}
