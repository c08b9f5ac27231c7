package bm25

import (
	"path/filepath"
	"testing"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "bm25")
	idx, err := Open(dir, DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestSearchEmptyQueryReturnsNoResults(t *testing.T) {
	idx := openTestIndex(t)
	hits, err := idx.Search("   ", "", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("hits = %v, want none", hits)
	}
}

func TestIndexNotVisibleUntilCommit(t *testing.T) {
	idx := openTestIndex(t)
	if err := idx.IndexDocument(Document{DocType: "grip", DocID: "g1", Text: "rust ownership and the borrow checker"}); err != nil {
		t.Fatalf("IndexDocument: %v", err)
	}

	hits, err := idx.Search("ownership", "", 10)
	if err != nil {
		t.Fatalf("Search before commit: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("hits before commit = %v, want none", hits)
	}

	if err := idx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	hits, err = idx.Search("ownership", "", 10)
	if err != nil {
		t.Fatalf("Search after commit: %v", err)
	}
	if len(hits) != 1 || hits[0].DocID != "g1" {
		t.Fatalf("hits after commit = %v", hits)
	}
}

func TestSearchRanksMatchingTopicHigher(t *testing.T) {
	idx := openTestIndex(t)
	docs := []Document{
		{DocType: "grip", DocID: "rust-1", Text: "Rust ownership and borrow checker ensure memory safety without garbage collection"},
		{DocType: "grip", DocID: "py-1", Text: "Python web frameworks Django Flask enable rapid development"},
		{DocType: "grip", DocID: "sql-1", Text: "SQL indexing and query execution plans determine performance"},
	}
	for _, d := range docs {
		if err := idx.IndexDocument(d); err != nil {
			t.Fatalf("IndexDocument(%s): %v", d.DocID, err)
		}
	}
	if err := idx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	hits, err := idx.Search("rust ownership borrow", "", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) == 0 || hits[0].DocID != "rust-1" {
		t.Fatalf("top hit = %v, want rust-1 first", hits)
	}

	none, err := idx.Search("nonexistent_gibberish_term_xyz", "", 10)
	if err != nil {
		t.Fatalf("Search nonsense: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("none = %v, want empty", none)
	}
}

func TestDeleteDocumentRemovesFromResults(t *testing.T) {
	idx := openTestIndex(t)
	if err := idx.IndexDocument(Document{DocType: "node", DocID: "n1", Text: "deployment pipeline outage review"}); err != nil {
		t.Fatalf("IndexDocument: %v", err)
	}
	if err := idx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if err := idx.DeleteDocument("node", "n1"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if err := idx.Commit(); err != nil {
		t.Fatalf("Commit 2: %v", err)
	}

	hits, err := idx.Search("deployment outage", "", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("hits = %v, want none after delete", hits)
	}
}

func TestSearchFiltersByDocType(t *testing.T) {
	idx := openTestIndex(t)
	if err := idx.IndexDocument(Document{DocType: "grip", DocID: "g1", Text: "shared vocabulary term"}); err != nil {
		t.Fatalf("IndexDocument: %v", err)
	}
	if err := idx.IndexDocument(Document{DocType: "node", DocID: "n1", Text: "shared vocabulary term"}); err != nil {
		t.Fatalf("IndexDocument: %v", err)
	}
	if err := idx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	hits, err := idx.Search("shared vocabulary", "grip", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].DocType != "grip" {
		t.Fatalf("hits = %v, want only grip", hits)
	}
}
