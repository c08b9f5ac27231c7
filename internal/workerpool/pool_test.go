package workerpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestSubmitRunsAllTasks(t *testing.T) {
	p := New(context.Background(), 4)
	var count int32
	for i := 0; i < 10; i++ {
		p.Submit(func(ctx context.Context) error {
			atomic.AddInt32(&count, 1)
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if count != 10 {
		t.Fatalf("count = %d, want 10", count)
	}
}

func TestWaitReturnsFirstError(t *testing.T) {
	p := New(context.Background(), 2)
	boom := errors.New("boom")
	p.Submit(func(ctx context.Context) error { return boom })
	p.Submit(func(ctx context.Context) error { return nil })
	if err := p.Wait(); err == nil {
		t.Fatal("expected error")
	}
}

func TestContextCancelledAfterFailure(t *testing.T) {
	p := New(context.Background(), 1)
	done := make(chan struct{})
	p.Submit(func(ctx context.Context) error { return errors.New("fail") })
	p.Submit(func(ctx context.Context) error {
		<-p.Context().Done()
		close(done)
		return nil
	})
	<-done
	_ = p.Wait()
}

func TestRunBoundsConcurrency(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8}
	var active, maxActive int32
	err := Run(context.Background(), 2, items, func(ctx context.Context, item int) error {
		n := atomic.AddInt32(&active, 1)
		for {
			m := atomic.LoadInt32(&maxActive)
			if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
				break
			}
		}
		atomic.AddInt32(&active, -1)
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if maxActive > 2 {
		t.Fatalf("maxActive = %d, want <= 2", maxActive)
	}
}

func TestRunPropagatesItemError(t *testing.T) {
	items := []string{"a", "b", "c"}
	err := Run(context.Background(), 2, items, func(ctx context.Context, item string) error {
		if item == "b" {
			return errors.New("bad item")
		}
		return nil
	})
	if err == nil {
		t.Fatal("expected error")
	}
}
