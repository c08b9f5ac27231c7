// Package home manages the agent-memory data directory layout.
//
// The data directory owns all persistent state: the config file, the
// bbolt key-value store (events, TOC nodes, grips, checkpoints, outbox,
// vector metadata), the BM25 full-text index, the HNSW vector graph, and
// a reserved directory for locally cached embedding models.
//
// Layout:
//
//	<root>/
//	  config.json
//	  kv/         (bbolt database: events, toc, grips, checkpoints, outbox)
//	  bm25/       (bleve index directory)
//	  vector/     (hnsw graph file + export snapshots)
//	  models/     (reserved for cached embedding model weights)
package home

import (
	"fmt"
	"os"
	"path/filepath"
)

// Dir represents an agent-memory data directory.
type Dir struct {
	root string
}

// New creates a Dir with an explicit root path.
func New(root string) Dir {
	return Dir{root: root}
}

// Default returns a Dir using the platform-appropriate default location:
//   - Linux:   ~/.config/agent-memory
//   - macOS:   ~/Library/Application Support/agent-memory
//   - Windows: %APPDATA%/agent-memory
func Default() (Dir, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return Dir{}, fmt.Errorf("determine config directory: %w", err)
	}
	return Dir{root: filepath.Join(base, "agent-memory")}, nil
}

// Root returns the data directory path.
func (d Dir) Root() string {
	return d.root
}

// ConfigPath returns the path to the config file.
func (d Dir) ConfigPath() string {
	return filepath.Join(d.root, "config.json")
}

// KVDir returns the directory holding the bbolt database file.
func (d Dir) KVDir() string {
	return filepath.Join(d.root, "kv")
}

// KVPath returns the path to the bbolt database file itself.
func (d Dir) KVPath() string {
	return filepath.Join(d.KVDir(), "store.db")
}

// Bm25Dir returns the directory holding the BM25 (bleve) index.
func (d Dir) Bm25Dir() string {
	return filepath.Join(d.root, "bm25")
}

// VectorDir returns the directory holding the HNSW graph file.
func (d Dir) VectorDir() string {
	return filepath.Join(d.root, "vector")
}

// VectorGraphPath returns the path to the persisted HNSW graph file.
func (d Dir) VectorGraphPath() string {
	return filepath.Join(d.VectorDir(), "graph.hnsw")
}

// ModelsDir returns the directory reserved for cached embedding model
// weights. Nothing writes here yet; real model inference is out of
// scope, but the layout reserves the slot so a future embedder can drop
// in without a data-directory migration.
func (d Dir) ModelsDir() string {
	return filepath.Join(d.root, "models")
}

// EnsureExists creates the data directory and its subdirectories if they
// don't exist.
func (d Dir) EnsureExists() error {
	for _, dir := range []string{d.root, d.KVDir(), d.Bm25Dir(), d.VectorDir(), d.ModelsDir()} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}
