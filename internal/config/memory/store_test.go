package memory

import (
	"context"
	"testing"

	"github.com/SpillwaveSolutions/agent-memory/internal/config"
)

func TestLoadEmptyReturnsNil(t *testing.T) {
	s := NewStore()
	cfg, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != nil {
		t.Fatalf("expected nil config, got %+v", cfg)
	}
}

func TestSaveThenLoadReturnsCopy(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	want := config.DefaultConfig()
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got == want {
		t.Fatal("Load should return a copy, not the saved pointer")
	}
	got.StoragePath = "mutated"

	got2, _ := s.Load(ctx)
	if got2.StoragePath == "mutated" {
		t.Fatal("mutating a loaded config should not affect the store")
	}
}
