package types

import "time"

// OutboxAction identifies the kind of downstream work an outbox entry
// represents.
type OutboxAction string

const (
	// ActionIndexEvent asks the indexing pipeline to resolve and index
	// whatever grip/TOC node a newly persisted event contributed to.
	ActionIndexEvent OutboxAction = "IndexEvent"

	// ActionUpdateToc is a hint that a TOC node changed. Per the
	// resolved open question, this is currently inert: TOC-layer code
	// re-indexes by enqueueing a follow-up ActionIndexEvent-style entry
	// rather than relying on updaters to special-case this action.
	ActionUpdateToc OutboxAction = "UpdateToc"
)

// OutboxEntry is a consumable unit of downstream work, created atomically
// alongside the event or TOC mutation it describes.
type OutboxEntry struct {
	Sequence    uint64       `msgpack:"sequence"`
	EventID     string       `msgpack:"event_id"`
	TimestampMs int64        `msgpack:"timestamp_ms"`
	Action      OutboxAction `msgpack:"action"`
}

// IndexType identifies which index an updater/checkpoint belongs to.
type IndexType string

const (
	IndexBm25     IndexType = "Bm25"
	IndexVector   IndexType = "Vector"
	IndexCombined IndexType = "Combined"
)

// Checkpoint is a persisted cursor marking the last work item a
// background job or index updater has successfully processed.
type Checkpoint struct {
	JobName           string    `json:"job_name"`
	IndexType         IndexType `json:"index_type,omitempty"`
	Level             TocLevel  `json:"level,omitempty"`
	LastSequence      uint64    `json:"last_sequence,omitempty"`
	LastProcessedTime time.Time `json:"last_processed_time,omitempty"`
	ProcessedCount    int64     `json:"processed_count"`
	CreatedAt         time.Time `json:"created_at"`
}
