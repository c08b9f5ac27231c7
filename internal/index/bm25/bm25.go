// Package bm25 wraps a github.com/blevesearch/bleve/v2 full-text index
// with the fixed document schema used across TocNodes and Grips: index
// and delete by doc_id, batched commit, and BM25-scored search with an
// optional doc_type filter.
//
// Writes accumulate in an in-memory batch and are not visible to readers
// until Commit flushes them into the underlying scorch index — readers
// always see a stable, already-committed snapshot.
package bm25

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/SpillwaveSolutions/agent-memory/internal/logging"
)

// Document is one unit indexed into the full-text layer: a TocNode or a
// Grip, flattened to the schema's fixed field set.
type Document struct {
	DocType     string   `json:"doc_type"`
	DocID       string   `json:"doc_id"`
	Level       string   `json:"level"`
	Text        string   `json:"text"`
	Keywords    []string `json:"keywords"`
	TimestampMs int64    `json:"timestamp_ms"`
	Agent       string   `json:"agent"`
}

// Hit is one search result, identifying the document and its BM25 score.
type Hit struct {
	DocType string
	DocID   string
	Score   float64
}

// Config tunes the index's write path.
type Config struct {
	// WriterMemoryBudgetBytes records the index-writer memory budget.
	// The Index stores it but does not read it: the pending batch is
	// flushed only by Commit, however large it grows.
	WriterMemoryBudgetBytes int64
}

// DefaultConfig returns the documented default writer memory budget.
func DefaultConfig() Config {
	return Config{WriterMemoryBudgetBytes: 50 * 1024 * 1024}
}

// Index is a single-writer, many-reader BM25 index. The writer side
// (IndexDocument/DeleteDocument/Commit) is gated behind mu to avoid
// interleaved commits; Search takes a read lock only for the duration of
// the query.
type Index struct {
	mu      sync.RWMutex
	idx     bleve.Index
	pending *bleve.Batch
	cfg     Config
	logger  *slog.Logger
}

func fieldMapping() *mapping.IndexMappingImpl {
	text := bleve.NewTextFieldMapping()
	text.Analyzer = "en"

	keyword := bleve.NewTextFieldMapping()
	keyword.Analyzer = "keyword"
	keyword.Store = true

	stored := bleve.NewTextFieldMapping()
	stored.Analyzer = "keyword"
	stored.Store = true
	stored.IncludeInAll = false

	numeric := bleve.NewNumericFieldMapping()
	numeric.Store = true
	numeric.IncludeInAll = false

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("doc_type", stored)
	doc.AddFieldMappingsAt("doc_id", stored)
	doc.AddFieldMappingsAt("level", stored)
	doc.AddFieldMappingsAt("text", text)
	doc.AddFieldMappingsAt("keywords", keyword)
	doc.AddFieldMappingsAt("timestamp_ms", numeric)
	doc.AddFieldMappingsAt("agent", stored)

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	return im
}

// Open opens the bleve index rooted at dir, creating it with the fixed
// schema mapping if it doesn't exist yet. A nil logger discards output.
func Open(dir string, cfg Config, logger *slog.Logger) (*Index, error) {
	logger = logging.Default(logger).With("component", "bm25-index")

	idx, err := bleve.Open(dir)
	if err != nil {
		idx, err = bleve.New(dir, fieldMapping())
		if err != nil {
			return nil, fmt.Errorf("bm25: create index at %s: %w", dir, err)
		}
		logger.Info("created bm25 index", "dir", dir)
	}

	return &Index{
		idx:     idx,
		pending: idx.NewBatch(),
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// Close releases the underlying index file handles.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.idx.Close()
}

// IndexDocument stages an index-or-replace of d by its (doc_type, doc_id)
// identity. Not visible to Search until the next Commit.
func (x *Index) IndexDocument(d Document) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.pending.Index(documentID(d.DocType, d.DocID), d)
}

// DeleteDocument stages a delete by (doc_type, doc_id) identity.
func (x *Index) DeleteDocument(docType, docID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.pending.Delete(documentID(docType, docID))
	return nil
}

// PendingSize reports how many staged operations are waiting for Commit.
func (x *Index) PendingSize() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.pending.Size()
}

// Commit flushes the staged batch into the index and starts a fresh
// batch. A commit over an empty batch is a cheap no-op.
func (x *Index) Commit() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.pending.Size() == 0 {
		return nil
	}
	if err := x.idx.Batch(x.pending); err != nil {
		return fmt.Errorf("bm25: commit: %w", err)
	}
	x.pending = x.idx.NewBatch()
	return nil
}

// Search runs a BM25-scored query over text and keywords, optionally
// restricted to docTypeFilter, returning up to limit hits ordered by
// descending score. A blank queryText returns no results without error.
func (x *Index) Search(queryText, docTypeFilter string, limit int) ([]Hit, error) {
	if strings.TrimSpace(queryText) == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	textQ := bleve.NewMatchQuery(queryText)
	textQ.SetField("text")
	kwQ := bleve.NewMatchQuery(queryText)
	kwQ.SetField("keywords")
	disjunction := bleve.NewDisjunctionQuery(textQ, kwQ)

	var q query.Query = disjunction
	if docTypeFilter != "" {
		typeQ := bleve.NewTermQuery(docTypeFilter)
		typeQ.SetField("doc_type")
		q = bleve.NewConjunctionQuery(disjunction, typeQ)
	}

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.Fields = []string{"doc_type", "doc_id"}

	x.mu.RLock()
	res, err := x.idx.Search(req)
	x.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("bm25: search: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		docType, _ := h.Fields["doc_type"].(string)
		docID, _ := h.Fields["doc_id"].(string)
		hits = append(hits, Hit{DocType: docType, DocID: docID, Score: h.Score})
	}
	return hits, nil
}

func documentID(docType, docID string) string {
	return docType + ":" + docID
}
