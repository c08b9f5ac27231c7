package callgroup

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDeduplication(t *testing.T) {
	var g Group[int, int]
	var calls atomic.Int32
	started := make(chan struct{})
	var once sync.Once

	fn := func() (int, error) {
		calls.Add(1)
		once.Do(func() { close(started) })
		time.Sleep(50 * time.Millisecond)
		return 42, nil
	}

	const n = 10
	var wg sync.WaitGroup
	results := make([]int, n)
	errs := make([]error, n)

	// First caller starts the work.
	wg.Go(func() {
		results[0], errs[0] = g.Do(1, fn)
	})

	// Wait for fn to start, then pile on.
	<-started
	for i := 1; i < n; i++ {
		wg.Go(func() {
			results[i], errs[i] = g.Do(1, fn)
		})
	}

	wg.Wait()

	for i := range results {
		if errs[i] != nil {
			t.Errorf("caller %d got error: %v", i, errs[i])
		}
		if results[i] != 42 {
			t.Errorf("caller %d got result %d, want 42", i, results[i])
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("fn called %d times, want 1", got)
	}
}

func TestIndependentKeys(t *testing.T) {
	var g Group[int, int]
	var calls atomic.Int32

	fn := func() (int, error) {
		calls.Add(1)
		return 1, nil
	}

	var wg sync.WaitGroup
	for _, key := range []int{1, 2, 3} {
		wg.Go(func() {
			g.Do(key, fn)
		})
	}

	wg.Wait()

	if got := calls.Load(); got != 3 {
		t.Errorf("fn called %d times, want 3", got)
	}
}

func TestWaiterReceivesResult(t *testing.T) {
	var g Group[int, string]
	started := make(chan struct{})

	fn := func() (string, error) {
		close(started)
		time.Sleep(50 * time.Millisecond)
		return "leader's result", nil
	}

	var wg sync.WaitGroup
	var result1, result2 string
	var err1, err2 error

	wg.Go(func() {
		result1, err1 = g.Do(1, fn)
	})
	<-started

	wg.Go(func() {
		result2, err2 = g.Do(1, func() (string, error) {
			t.Error("second fn should not execute")
			return "unexpected", errors.New("unexpected")
		})
	})

	wg.Wait()

	if err1 != nil {
		t.Errorf("caller 1 got error: %v", err1)
	}
	if err2 != nil {
		t.Errorf("caller 2 got error: %v", err2)
	}
	if result1 != "leader's result" || result2 != "leader's result" {
		t.Errorf("result1 = %q, result2 = %q, want both %q", result1, result2, "leader's result")
	}
}

func TestErrorPropagation(t *testing.T) {
	var g Group[int, string]
	sentinel := errors.New("failed")
	started := make(chan struct{})

	var wg sync.WaitGroup
	var err1, err2 error

	wg.Go(func() {
		_, err1 = g.Do(1, func() (string, error) {
			close(started)
			time.Sleep(50 * time.Millisecond)
			return "", sentinel
		})
	})
	<-started

	wg.Go(func() {
		_, err2 = g.Do(1, func() (string, error) {
			t.Error("should not execute")
			return "", nil
		})
	})

	wg.Wait()

	if !errors.Is(err1, sentinel) {
		t.Errorf("caller 1: got %v, want %v", err1, sentinel)
	}
	if !errors.Is(err2, sentinel) {
		t.Errorf("caller 2: got %v, want %v", err2, sentinel)
	}
}

func TestReuseAfterCompletion(t *testing.T) {
	var g Group[int, int]
	var calls atomic.Int32

	fn := func() (int, error) {
		n := int(calls.Add(1))
		return n, nil
	}

	// First call completes.
	first, err := g.Do(1, fn)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if first != 1 {
		t.Fatalf("first call result = %d, want 1", first)
	}

	// Second call for same key should trigger a new execution.
	second, err := g.Do(1, fn)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if second != 2 {
		t.Fatalf("second call result = %d, want 2", second)
	}

	if got := calls.Load(); got != 2 {
		t.Errorf("fn called %d times, want 2", got)
	}
}
