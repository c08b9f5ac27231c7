package indexing

import (
	"context"

	"github.com/SpillwaveSolutions/agent-memory/internal/index/bm25"
	"github.com/SpillwaveSolutions/agent-memory/internal/index/vector"
	"github.com/SpillwaveSolutions/agent-memory/internal/types"
)

// Bm25Updater adapts a bm25.Index to the Updater contract.
type Bm25Updater struct {
	idx *bm25.Index
}

func NewBm25Updater(idx *bm25.Index) *Bm25Updater { return &Bm25Updater{idx: idx} }

func (u *Bm25Updater) Name() string          { return "bm25" }
func (u *Bm25Updater) Kind() types.IndexType { return types.IndexBm25 }
func (u *Bm25Updater) Commit() error         { return u.idx.Commit() }

func (u *Bm25Updater) IndexDocument(ctx context.Context, doc Document) error {
	return u.idx.IndexDocument(bm25.Document{
		DocType:     doc.DocType,
		DocID:       doc.DocID,
		Level:       doc.Level,
		Text:        doc.Text,
		Keywords:    doc.Keywords,
		TimestampMs: doc.TimestampMs,
		Agent:       doc.Agent,
	})
}

// VectorUpdater adapts a vector.Index to the Updater contract, embedding
// each document's text before adding it. Vector writes have no separate
// commit step (the graph is mutated in place); Commit is a no-op so the
// pipeline can treat every updater uniformly, and Save is the caller's
// responsibility (wired into the scheduler's index-commit job alongside
// the BM25 commit).
type VectorUpdater struct {
	idx      *vector.Index
	embedder vector.Embedder
}

func NewVectorUpdater(idx *vector.Index, embedder vector.Embedder) *VectorUpdater {
	return &VectorUpdater{idx: idx, embedder: embedder}
}

func (u *VectorUpdater) Name() string          { return "vector" }
func (u *VectorUpdater) Kind() types.IndexType { return types.IndexVector }
func (u *VectorUpdater) Commit() error         { return nil }

func (u *VectorUpdater) IndexDocument(ctx context.Context, doc Document) error {
	if doc.Text == "" {
		return nil
	}
	vec, err := u.embedder.Embed(ctx, doc.Text)
	if err != nil {
		return err
	}
	_, err = u.idx.Add(vec, vector.Meta{
		DocType:     doc.DocType,
		DocID:       doc.DocID,
		CreatedAtMs: doc.TimestampMs,
		TextPreview: doc.Text,
		Agent:       doc.Agent,
	})
	return err
}

// CombinedUpdater fans a single IndexDocument/Commit call out to both
// the BM25 and vector updaters, registered under types.IndexCombined
// when callers want one checkpoint shared by both indexes rather than
// letting them catch up independently.
type CombinedUpdater struct {
	bm25   *Bm25Updater
	vector *VectorUpdater
}

func NewCombinedUpdater(bm25Updater *Bm25Updater, vectorUpdater *VectorUpdater) *CombinedUpdater {
	return &CombinedUpdater{bm25: bm25Updater, vector: vectorUpdater}
}

func (u *CombinedUpdater) Name() string          { return "combined" }
func (u *CombinedUpdater) Kind() types.IndexType { return types.IndexCombined }

func (u *CombinedUpdater) IndexDocument(ctx context.Context, doc Document) error {
	if err := u.bm25.IndexDocument(ctx, doc); err != nil {
		return err
	}
	return u.vector.IndexDocument(ctx, doc)
}

func (u *CombinedUpdater) Commit() error {
	if err := u.bm25.Commit(); err != nil {
		return err
	}
	return u.vector.Commit()
}
