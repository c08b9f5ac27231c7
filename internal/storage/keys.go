// Package storage provides the embedded key/value engine the rest of the
// system is built on: atomic multi-bucket batches, time-ordered prefix
// scans, and the bucket (column-family) layout from the storage design.
//
// Keys are designed for sort order. The zero-padded decimal prefixes
// below must be preserved bit-exactly — changing the padding width
// breaks every range scan that depends on lexicographic == temporal
// ordering.
package storage

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/oklog/ulid/v2"
)

// Bucket (column family) names.
const (
	BucketEvents      = "events"
	BucketTocNodes    = "toc_nodes"
	BucketTocLatest   = "toc_latest"
	BucketGrips       = "grips"
	BucketOutbox      = "outbox"
	BucketCheckpoints = "checkpoints"
	BucketEventDocs   = "event_docs"
	BucketVectorMeta  = "vector_meta"
	BucketTopics      = "topics"
	BucketTopicLinks  = "topic_links"
	BucketTopicRels   = "topic_rels"
)

// AllBuckets lists every bucket created at open time.
var AllBuckets = []string{
	BucketEvents, BucketTocNodes, BucketTocLatest, BucketGrips,
	BucketOutbox, BucketCheckpoints, BucketEventDocs, BucketVectorMeta,
	BucketTopics, BucketTopicLinks, BucketTopicRels,
}

// EventKey encodes an event's storage key: evt:{timestamp_ms:013}:{ulid}.
// The 13-digit zero-padded decimal timestamp ensures lexicographic order
// equals temporal order for any timestamp representable in milliseconds
// for the next ~300 years.
func EventKey(timestampMs int64, id ulid.ULID) []byte {
	return []byte(fmt.Sprintf("evt:%013d:%s", timestampMs, id.String()))
}

// EventKeyPrefix returns the scan prefix for a given millisecond
// timestamp; used to build inclusive/exclusive range-scan bounds.
func EventKeyPrefix(timestampMs int64) []byte {
	return []byte(fmt.Sprintf("evt:%013d:", timestampMs))
}

// ParseEventKey decodes an event key back into its timestamp and ULID.
func ParseEventKey(key []byte) (timestampMs int64, id ulid.ULID, err error) {
	parts := strings.SplitN(string(key), ":", 3)
	if len(parts) != 3 || parts[0] != "evt" {
		return 0, ulid.ULID{}, fmt.Errorf("invalid event key %q", key)
	}
	timestampMs, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, ulid.ULID{}, fmt.Errorf("invalid event key timestamp %q: %w", key, err)
	}
	id, err = ulid.Parse(parts[2])
	if err != nil {
		return 0, ulid.ULID{}, fmt.Errorf("invalid event key ulid %q: %w", key, err)
	}
	return timestampMs, id, nil
}

// OutboxKey encodes an outbox sequence number: outbox:{sequence:020}.
func OutboxKey(sequence uint64) []byte {
	return []byte(fmt.Sprintf("outbox:%020d", sequence))
}

// ParseOutboxKey decodes an outbox key back into its sequence number.
func ParseOutboxKey(key []byte) (uint64, error) {
	parts := strings.SplitN(string(key), ":", 2)
	if len(parts) != 2 || parts[0] != "outbox" {
		return 0, fmt.Errorf("invalid outbox key %q", key)
	}
	seq, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid outbox key sequence %q: %w", key, err)
	}
	return seq, nil
}

// CheckpointKey encodes a checkpoint key: checkpoint:{job_name}.
func CheckpointKey(jobName string) []byte {
	return []byte("checkpoint:" + jobName)
}

// GripKey encodes a grip's storage key: grip:{timestamp_ms}:{ulid}.
// Unlike events, grip timestamps are not zero-padded in the spec's
// node-id grammar — the grip id itself (not a derived storage key) is
// what callers see, and its component ordering is identical to the
// event key's, so we reuse the same zero-padded form for the scan key
// while keeping GripID() human/grammar-stable.
func GripKey(timestampMs int64, id ulid.ULID) []byte {
	return []byte(fmt.Sprintf("grip:%013d:%s", timestampMs, id.String()))
}

// GripID formats the externally visible grip identifier: grip:{ts}:{ulid}.
func GripID(timestampMs int64, id ulid.ULID) string {
	return fmt.Sprintf("grip:%d:%s", timestampMs, id.String())
}

// TocLatestKey encodes the "latest version pointer" key for a node,
// keyed by the node's stable identifier (which is stable across
// versions for calendar levels, and unique per segment).
func TocLatestKey(nodeID string) []byte {
	return []byte("toc_latest:" + nodeID)
}

// TocVersionKey encodes a specific version of a TOC node so that prior
// versions remain retrievable after a rollup rewrites the latest
// pointer.
func TocVersionKey(nodeID string, version int) []byte {
	return []byte(fmt.Sprintf("toc_version:%s:%08d", nodeID, version))
}

// EventDocKey encodes the reverse-index key mapping an event to the
// grip/node documents it contributed to, used by the indexing pipeline
// to resolve IndexEvent outbox entries to indexable documents.
func EventDocKey(eventID string) []byte {
	return []byte("event_docs:" + eventID)
}
