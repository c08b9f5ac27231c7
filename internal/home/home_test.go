package home

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	d := New("/tmp/agent-memory-test")
	if d.Root() != "/tmp/agent-memory-test" {
		t.Errorf("expected root /tmp/agent-memory-test, got %s", d.Root())
	}
}

func TestDefault(t *testing.T) {
	d, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if d.Root() == "" {
		t.Fatal("expected non-empty root")
	}
	if filepath.Base(d.Root()) != "agent-memory" {
		t.Errorf("expected root to end with 'agent-memory', got %s", d.Root())
	}
}

func TestConfigPath(t *testing.T) {
	d := New("/data")
	if got := d.ConfigPath(); got != "/data/config.json" {
		t.Errorf("got %s", got)
	}
}

func TestKVPaths(t *testing.T) {
	d := New("/data")
	if got := d.KVDir(); got != "/data/kv" {
		t.Errorf("KVDir: got %s", got)
	}
	if got := d.KVPath(); got != "/data/kv/store.db" {
		t.Errorf("KVPath: got %s", got)
	}
}

func TestIndexDirs(t *testing.T) {
	d := New("/data")
	if got := d.Bm25Dir(); got != "/data/bm25" {
		t.Errorf("Bm25Dir: got %s", got)
	}
	if got := d.VectorDir(); got != "/data/vector" {
		t.Errorf("VectorDir: got %s", got)
	}
	if got := d.VectorGraphPath(); got != "/data/vector/graph.hnsw" {
		t.Errorf("VectorGraphPath: got %s", got)
	}
	if got := d.ModelsDir(); got != "/data/models" {
		t.Errorf("ModelsDir: got %s", got)
	}
}

func TestEnsureExists(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "agent-memory")
	d := New(root)
	if err := d.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists: %v", err)
	}
	for _, dir := range []string{root, d.KVDir(), d.Bm25Dir(), d.VectorDir(), d.ModelsDir()} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("Stat(%s): %v", dir, err)
		}
		if !info.IsDir() {
			t.Errorf("%s: expected directory", dir)
		}
	}

	if err := d.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists (idempotent): %v", err)
	}
}
