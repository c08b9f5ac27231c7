package storage

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/SpillwaveSolutions/agent-memory/internal/types"
)

// Events, TOC nodes and grips are encoded with msgpack — a direct
// teacher dependency, used here the way the teacher favors a compact
// binary record format over JSON for anything not meant for human
// inspection. Checkpoints are the one exception: encoded as JSON, per
// the storage design's explicit JSON checkpoint value shape.

func encodeEvent(e types.Event) ([]byte, error) {
	b, err := msgpack.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return b, nil
}

func decodeEvent(b []byte) (types.Event, error) {
	var e types.Event
	if err := msgpack.Unmarshal(b, &e); err != nil {
		return types.Event{}, fmt.Errorf("decode event: %w", err)
	}
	return e, nil
}

func encodeOutboxEntry(o types.OutboxEntry) ([]byte, error) {
	b, err := msgpack.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("encode outbox entry: %w", err)
	}
	return b, nil
}

func decodeOutboxEntry(b []byte) (types.OutboxEntry, error) {
	var o types.OutboxEntry
	if err := msgpack.Unmarshal(b, &o); err != nil {
		return types.OutboxEntry{}, fmt.Errorf("decode outbox entry: %w", err)
	}
	return o, nil
}

func encodeTocNode(n types.TocNode) ([]byte, error) {
	b, err := msgpack.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("encode toc node: %w", err)
	}
	return b, nil
}

func decodeTocNode(b []byte) (types.TocNode, error) {
	var n types.TocNode
	if err := msgpack.Unmarshal(b, &n); err != nil {
		return types.TocNode{}, fmt.Errorf("decode toc node: %w", err)
	}
	return n, nil
}

func encodeGrip(g types.Grip) ([]byte, error) {
	b, err := msgpack.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("encode grip: %w", err)
	}
	return b, nil
}

func decodeGrip(b []byte) (types.Grip, error) {
	var g types.Grip
	if err := msgpack.Unmarshal(b, &g); err != nil {
		return types.Grip{}, fmt.Errorf("decode grip: %w", err)
	}
	return g, nil
}

func encodeCheckpoint(c types.Checkpoint) ([]byte, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode checkpoint: %w", err)
	}
	return b, nil
}

func decodeCheckpoint(b []byte) (types.Checkpoint, error) {
	var c types.Checkpoint
	if err := json.Unmarshal(b, &c); err != nil {
		return types.Checkpoint{}, fmt.Errorf("decode checkpoint: %w", err)
	}
	return c, nil
}

// eventDocs maps an event id to the grip/node documents it contributed
// to, completing the reverse lookup the indexing pipeline needs to
// resolve IndexEvent outbox entries (see SPEC_FULL.md §4.F).
type eventDocs struct {
	GripIDs []string `msgpack:"grip_ids,omitempty"`
	NodeID  string   `msgpack:"node_id,omitempty"`
}

func encodeEventDocs(d eventDocs) ([]byte, error) {
	return msgpack.Marshal(d)
}

func decodeEventDocs(b []byte) (eventDocs, error) {
	var d eventDocs
	if err := msgpack.Unmarshal(b, &d); err != nil {
		return eventDocs{}, fmt.Errorf("decode event docs: %w", err)
	}
	return d, nil
}
