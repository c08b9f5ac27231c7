// Package memory provides an in-process config.Store backed by a guarded
// pointer, for tests and single-process embedding where no on-disk
// config file is wanted.
package memory

import (
	"context"
	"sync"

	"github.com/SpillwaveSolutions/agent-memory/internal/config"
)

// Store is an in-memory config.Store. Safe for concurrent use.
type Store struct {
	mu  sync.RWMutex
	cfg *config.Config
}

var _ config.Store = (*Store)(nil)

// NewStore creates an empty in-memory Store.
func NewStore() *Store {
	return &Store{}
}

// NewStoreWithConfig creates an in-memory Store pre-populated with cfg.
func NewStoreWithConfig(cfg *config.Config) *Store {
	return &Store{cfg: cfg}
}

func (s *Store) Load(ctx context.Context) (*config.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cfg == nil {
		return nil, nil
	}
	clone := *s.cfg
	return &clone, nil
}

func (s *Store) Save(ctx context.Context, cfg *config.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *cfg
	s.cfg = &clone
	return nil
}
