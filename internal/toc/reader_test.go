package toc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SpillwaveSolutions/agent-memory/internal/grip"
	"github.com/SpillwaveSolutions/agent-memory/internal/summarize"
)

func TestGetNodeNotFound(t *testing.T) {
	s := newTestStore(t)
	r := NewReader(s, summarize.NewMock())
	_, err := r.GetNode(context.Background(), "toc:day:2025-03-14")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetNodeSynthesizesYearFromMonths(t *testing.T) {
	s := newTestStore(t)
	b := New(s, summarize.NewMock(), grip.New(grip.DefaultExtractConfig()), nil)
	seg := mkSegment(time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC))
	if _, err := b.Build(context.Background(), seg); err != nil {
		t.Fatalf("Build: %v", err)
	}

	r := NewReader(s, summarize.NewMock())
	year, err := r.GetNode(context.Background(), "toc:year:2025")
	if err != nil {
		t.Fatalf("GetNode(year): %v", err)
	}
	if year.Version != 0 {
		t.Fatalf("synthesized year should be unpersisted (Version=0), got %d", year.Version)
	}
	if len(year.ChildNodeIDs) != 1 {
		t.Fatalf("ChildNodeIDs = %v, want 1 month", year.ChildNodeIDs)
	}
}

// countingSummarizer wraps a summarize.Summarizer, counting how many
// times SummarizeChildren actually runs and signaling started the
// moment the first call begins, so a test can let other callers pile on
// before it returns.
type countingSummarizer struct {
	summarize.Summarizer
	mu      sync.Mutex
	calls   int
	started chan struct{}
}

func (c *countingSummarizer) SummarizeChildren(ctx context.Context, children []summarize.Summary) (summarize.Summary, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	close(c.started)
	time.Sleep(50 * time.Millisecond)
	return c.Summarizer.SummarizeChildren(ctx, children)
}

func TestGetNodeDedupesConcurrentYearSynthesis(t *testing.T) {
	s := newTestStore(t)
	b := New(s, summarize.NewMock(), grip.New(grip.DefaultExtractConfig()), nil)
	seg := mkSegment(time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC))
	if _, err := b.Build(context.Background(), seg); err != nil {
		t.Fatalf("Build: %v", err)
	}

	counting := &countingSummarizer{Summarizer: summarize.NewMock(), started: make(chan struct{})}
	r := NewReader(s, counting)

	var wg sync.WaitGroup
	const n = 5
	errs := make([]error, n)

	wg.Go(func() {
		_, errs[0] = r.GetNode(context.Background(), "toc:year:2025")
	})
	<-counting.started

	for i := 1; i < n; i++ {
		wg.Go(func() {
			_, errs[i] = r.GetNode(context.Background(), "toc:year:2025")
		})
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
	}
	counting.mu.Lock()
	defer counting.mu.Unlock()
	if counting.calls != 1 {
		t.Fatalf("SummarizeChildren called %d times, want 1", counting.calls)
	}
}

func TestBrowseTocRespectsLimit(t *testing.T) {
	s := newTestStore(t)
	b := New(s, summarize.NewMock(), grip.New(grip.DefaultExtractConfig()), nil)
	day := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		seg := mkSegment(day.Add(time.Duration(i) * 2 * time.Hour))
		if _, err := b.Build(context.Background(), seg); err != nil {
			t.Fatalf("Build %d: %v", i, err)
		}
	}

	r := NewReader(s, summarize.NewMock())
	children, next, err := r.BrowseToc(context.Background(), "toc:day:2025-03-14", 2, "")
	if err != nil {
		t.Fatalf("BrowseToc: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("children = %d, want 2", len(children))
	}
	if next == "" {
		t.Fatal("expected a continuation token")
	}

	rest, _, err := r.BrowseToc(context.Background(), "toc:day:2025-03-14", 2, next)
	if err != nil {
		t.Fatalf("BrowseToc continuation: %v", err)
	}
	if len(rest) != 1 {
		t.Fatalf("rest = %d, want 1", len(rest))
	}
}

func TestGetTocRootListsYears(t *testing.T) {
	s := newTestStore(t)
	b := New(s, summarize.NewMock(), grip.New(grip.DefaultExtractConfig()), nil)
	seg := mkSegment(time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC))
	if _, err := b.Build(context.Background(), seg); err != nil {
		t.Fatalf("Build: %v", err)
	}

	r := NewReader(s, summarize.NewMock())
	years, err := r.GetTocRoot(context.Background())
	if err != nil {
		t.Fatalf("GetTocRoot: %v", err)
	}
	if len(years) != 1 || years[0].NodeID != "toc:year:2025" {
		t.Fatalf("years = %v", years)
	}
}
