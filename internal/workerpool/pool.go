// Package workerpool bounds the number of goroutines used for blocking
// I/O (embedding calls, bm25/vector writes, rollup summarization) so a
// burst of work can't spawn unbounded goroutines against a single
// bbolt handle or external model endpoint. It wraps
// golang.org/x/sync/errgroup the same way internal/index/build.go
// fans a build out across indexers, adding a fixed concurrency limit
// and a Submit/Wait lifecycle instead of one-shot Go+Wait.
package workerpool

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Pool runs submitted tasks with bounded concurrency. The zero value is
// not usable; construct with New.
type Pool struct {
	limit int
	group *errgroup.Group
	ctx   context.Context
}

// New creates a Pool bound to ctx with at most limit tasks running
// concurrently. limit <= 0 means unbounded, matching errgroup's
// default SetLimit semantics.
func New(ctx context.Context, limit int) *Pool {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	return &Pool{limit: limit, group: g, ctx: gctx}
}

// Context returns the pool's derived context, cancelled as soon as any
// submitted task returns a non-nil error.
func (p *Pool) Context() context.Context { return p.ctx }

// Submit schedules fn to run on the pool. It blocks if the pool is at
// its concurrency limit. fn receives the pool's derived context, which
// is cancelled once any task in the group fails.
func (p *Pool) Submit(fn func(ctx context.Context) error) {
	p.group.Go(func() error {
		return fn(p.ctx)
	})
}

// Wait blocks until every submitted task has returned, and returns the
// first non-nil error seen (if any). Wait must be called exactly once;
// the Pool is not reusable afterward.
func (p *Pool) Wait() error {
	return p.group.Wait()
}

// Run submits every item in items to the pool via fn and waits for all
// of them to finish, short-circuiting on the first error the way
// errgroup does. It is a convenience for the common "fan out a fixed
// batch, bound the concurrency" shape.
func Run[T any](ctx context.Context, limit int, items []T, fn func(ctx context.Context, item T) error) error {
	p := New(ctx, limit)
	for _, item := range items {
		item := item
		p.Submit(func(ctx context.Context) error {
			if err := fn(ctx, item); err != nil {
				return fmt.Errorf("workerpool: %w", err)
			}
			return nil
		})
	}
	return p.Wait()
}
