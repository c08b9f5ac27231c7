package storage

import (
	"github.com/SpillwaveSolutions/agent-memory/internal/types"
)

// PutTocNode writes n under the version it carries (callers bump
// n.Version themselves before writing a new version) and advances the
// "latest" pointer. Prior versions remain retrievable via
// TocVersionKey — a node is never mutated in place.
func (t *Txn) PutTocNode(n types.TocNode) error {
	b, err := encodeTocNode(n)
	if err != nil {
		return err
	}
	if err := t.Put(BucketTocNodes, TocVersionKey(n.NodeID, n.Version), b); err != nil {
		return err
	}
	return t.Put(BucketTocLatest, TocLatestKey(n.NodeID), b)
}

// GetTocNode resolves the latest version of a node by id.
func (t *Txn) GetTocNode(nodeID string) (types.TocNode, error) {
	b, err := t.Get(BucketTocLatest, TocLatestKey(nodeID))
	if err != nil {
		return types.TocNode{}, err
	}
	return decodeTocNode(b)
}

// GetTocNodeVersion resolves a specific historical version of a node.
func (t *Txn) GetTocNodeVersion(nodeID string, version int) (types.TocNode, error) {
	b, err := t.Get(BucketTocNodes, TocVersionKey(nodeID, version))
	if err != nil {
		return types.TocNode{}, err
	}
	return decodeTocNode(b)
}

func (s *Storage) GetTocNode(nodeID string) (types.TocNode, error) {
	var n types.TocNode
	err := s.View(func(t *Txn) error {
		var err error
		n, err = t.GetTocNode(nodeID)
		return err
	})
	return n, err
}

func (s *Storage) PutTocNode(n types.TocNode) error {
	return s.Batch(func(t *Txn) error { return t.PutTocNode(n) })
}

// ListNodesByIDPrefix scans the "latest" pointer bucket for every node
// whose id starts with idPrefix, in lexicographic (node-id) order. Used
// to synthesize aggregates (e.g. a Year from its Month children) that
// have no rollup-authored node of their own.
func (s *Storage) ListNodesByIDPrefix(idPrefix string) ([]types.TocNode, error) {
	var out []types.TocNode
	var decodeErr error
	err := s.View(func(t *Txn) error {
		t.ScanPrefix(BucketTocLatest, []byte("toc_latest:"+idPrefix), func(_, v []byte) bool {
			n, err := decodeTocNode(v)
			if err != nil {
				decodeErr = err
				return false
			}
			out = append(out, n)
			return true
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return out, nil
}

// ListChildren resolves every child node id of n, in the order recorded
// on the parent. Missing children are skipped without an error, so a
// result shorter than ChildNodeIDs means some ids did not resolve.
func (s *Storage) ListChildren(n types.TocNode) ([]types.TocNode, error) {
	out := make([]types.TocNode, 0, len(n.ChildNodeIDs))
	err := s.View(func(t *Txn) error {
		for _, id := range n.ChildNodeIDs {
			child, err := t.GetTocNode(id)
			if err != nil {
				if err == ErrKeyNotFound {
					continue
				}
				return err
			}
			out = append(out, child)
		}
		return nil
	})
	return out, err
}
