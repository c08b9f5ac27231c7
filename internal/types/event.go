// Package types defines the data model shared across the memory store:
// events, TOC nodes, grips, segments, outbox entries, and checkpoints.
//
// All types in this package are plain data — encoding/decoding lives in
// the packages that own the wire format (internal/storage uses msgpack
// for events/nodes/grips, JSON for checkpoints).
package types

import (
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventType enumerates the kinds of session events the store ingests.
type EventType string

const (
	EventSessionStart    EventType = "SessionStart"
	EventUserMessage     EventType = "UserMessage"
	EventAssistantMsg    EventType = "AssistantMessage"
	EventToolResult      EventType = "ToolResult"
	EventAssistantStop   EventType = "AssistantStop"
	EventSubagentStart   EventType = "SubagentStart"
	EventSubagentStop    EventType = "SubagentStop"
	EventSessionEnd      EventType = "SessionEnd"
)

// Role identifies who produced an event.
type Role string

const (
	RoleUser      Role = "User"
	RoleAssistant Role = "Assistant"
	RoleSystem    Role = "System"
	RoleTool      Role = "Tool"
)

// Event is an immutable record of a single conversational turn or tool
// invocation. Timestamp is source wall-clock time, not ingest time.
type Event struct {
	EventID   string            `msgpack:"event_id"`
	SessionID string            `msgpack:"session_id"`
	Timestamp time.Time         `msgpack:"timestamp"`
	EventType EventType         `msgpack:"event_type"`
	Role      Role              `msgpack:"role"`
	Text      string            `msgpack:"text"`
	Metadata  map[string]string `msgpack:"metadata,omitempty"`
	Agent     string            `msgpack:"agent,omitempty"`
}

// Validate checks the preconditions from the ingest specification:
// non-empty event_id/session_id and a finite, representable timestamp.
func (e Event) Validate() error {
	if e.EventID == "" {
		return fieldError("event_id", errors.New("must not be empty"))
	}
	if _, err := ulid.Parse(e.EventID); err != nil {
		return fieldError("event_id", fmt.Errorf("must be a parseable time-embedded identifier: %w", err))
	}
	if e.SessionID == "" {
		return fieldError("session_id", errors.New("must not be empty"))
	}
	if e.Timestamp.IsZero() {
		return fieldError("timestamp", errors.New("must be a finite, non-zero time"))
	}
	// Representable range: within int64 milliseconds since epoch.
	ms := e.Timestamp.UnixMilli()
	if ms < 0 {
		return fieldError("timestamp", errors.New("must not be before the Unix epoch"))
	}
	switch e.EventType {
	case EventSessionStart, EventUserMessage, EventAssistantMsg, EventToolResult,
		EventAssistantStop, EventSubagentStart, EventSubagentStop, EventSessionEnd:
	default:
		return fieldError("event_type", fmt.Errorf("unknown event type %q", e.EventType))
	}
	switch e.Role {
	case RoleUser, RoleAssistant, RoleSystem, RoleTool:
	default:
		return fieldError("role", fmt.Errorf("unknown role %q", e.Role))
	}
	return nil
}

// FieldError names the offending field of a validation failure, per the
// error-handling design's "Validation" taxonomy.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Err) }
func (e *FieldError) Unwrap() error { return e.Err }

func fieldError(field string, err error) error {
	return &FieldError{Field: field, Err: err}
}
