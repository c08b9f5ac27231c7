package storage

import (
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/SpillwaveSolutions/agent-memory/internal/types"
)

// PutGrip persists a grip under its time-ordered key.
func (t *Txn) PutGrip(g types.Grip) error {
	parts, err := parseGripID(g.GripID)
	if err != nil {
		return err
	}
	b, err := encodeGrip(g)
	if err != nil {
		return err
	}
	return t.Put(BucketGrips, GripKey(parts.timestampMs, parts.id), b)
}

// GetGrip resolves a grip by id.
func (t *Txn) GetGrip(gripID string) (types.Grip, error) {
	parts, err := parseGripID(gripID)
	if err != nil {
		return types.Grip{}, err
	}
	b, err := t.Get(BucketGrips, GripKey(parts.timestampMs, parts.id))
	if err != nil {
		return types.Grip{}, err
	}
	return decodeGrip(b)
}

func (s *Storage) GetGrip(gripID string) (types.Grip, error) {
	var g types.Grip
	err := s.View(func(t *Txn) error {
		var err error
		g, err = t.GetGrip(gripID)
		return err
	})
	return g, err
}

type gripIDParts struct {
	timestampMs int64
	id          ulid.ULID
}

func parseGripID(gripID string) (gripIDParts, error) {
	var tsMs int64
	var idStr string
	n, err := fmt.Sscanf(gripID, "grip:%d:%s", &tsMs, &idStr)
	if err != nil || n != 2 {
		return gripIDParts{}, fmt.Errorf("invalid grip id %q", gripID)
	}
	id, err := ulid.Parse(idStr)
	if err != nil {
		return gripIDParts{}, fmt.Errorf("invalid grip id ulid %q: %w", gripID, err)
	}
	return gripIDParts{timestampMs: tsMs, id: id}, nil
}

// PutEventDocs records which grip/node documents an event contributed
// to, completing the event->document reverse lookup the BM25/Vector
// updaters need to resolve IndexEvent entries.
func (t *Txn) PutEventDocs(eventID string, gripIDs []string, nodeID string) error {
	existing, _ := t.getEventDocs(eventID)
	merged := eventDocs{
		GripIDs: mergeUnique(existing.GripIDs, gripIDs),
		NodeID:  nodeID,
	}
	b, err := encodeEventDocs(merged)
	if err != nil {
		return err
	}
	return t.Put(BucketEventDocs, EventDocKey(eventID), b)
}

func (t *Txn) getEventDocs(eventID string) (eventDocs, error) {
	b, err := t.Get(BucketEventDocs, EventDocKey(eventID))
	if err != nil {
		return eventDocs{}, err
	}
	return decodeEventDocs(b)
}

// GetEventDocs resolves an event id to the grip ids and TOC node id it
// contributed to, or a zero value if the event hasn't been summarized
// yet.
func (s *Storage) GetEventDocs(eventID string) (gripIDs []string, nodeID string, err error) {
	err = s.View(func(t *Txn) error {
		d, err := t.getEventDocs(eventID)
		if err != nil {
			if err == ErrKeyNotFound {
				return nil
			}
			return err
		}
		gripIDs = d.GripIDs
		nodeID = d.NodeID
		return nil
	})
	return gripIDs, nodeID, err
}

func mergeUnique(existing, fresh []string) []string {
	seen := make(map[string]bool, len(existing)+len(fresh))
	out := make([]string, 0, len(existing)+len(fresh))
	for _, s := range existing {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range fresh {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
