// Package facade exposes a stable request/response boundary over the
// core packages: ingest one event, browse the TOC, expand a grip, route
// a query through the retrieval policy, and inspect/control the
// scheduler. Every validation failure is surfaced through apierr with
// the offending field named; the façade never panics on malformed
// input.
package facade

import (
	"context"
	"fmt"

	"github.com/SpillwaveSolutions/agent-memory/internal/apierr"
	"github.com/SpillwaveSolutions/agent-memory/internal/grip"
	"github.com/SpillwaveSolutions/agent-memory/internal/ingest"
	"github.com/SpillwaveSolutions/agent-memory/internal/retrieval"
	"github.com/SpillwaveSolutions/agent-memory/internal/scheduler"
	"github.com/SpillwaveSolutions/agent-memory/internal/storage"
	"github.com/SpillwaveSolutions/agent-memory/internal/sysmetrics"
	"github.com/SpillwaveSolutions/agent-memory/internal/toc"
	"github.com/SpillwaveSolutions/agent-memory/internal/types"
)

// Facade is the single entry point every caller (today, the CLI) goes
// through.
type Facade struct {
	store     *storage.Storage
	ingester  *ingest.Ingester
	tocReader *toc.Reader
	expander  *grip.Expander
	policy    *retrieval.Policy
	sched     *scheduler.Scheduler
}

// New assembles a Facade from its already-constructed components. Any
// of policy/sched may be nil if that subsystem isn't wired yet; the
// corresponding operations return an Internal error (via
// apierr.Translate) naming the subsystem rather than panicking.
func New(store *storage.Storage, ingester *ingest.Ingester, tocReader *toc.Reader, expander *grip.Expander, policy *retrieval.Policy, sched *scheduler.Scheduler) *Facade {
	return &Facade{store: store, ingester: ingester, tocReader: tocReader, expander: expander, policy: policy, sched: sched}
}

// IngestEventResult is IngestEvent's response shape.
type IngestEventResult struct {
	EventID string
	Created bool
}

// IngestEvent validates and persists one event.
func (f *Facade) IngestEvent(ctx context.Context, e types.Event) (IngestEventResult, error) {
	id, created, err := f.ingester.Ingest(ctx, e)
	if err != nil {
		return IngestEventResult{}, apierr.Translate(err)
	}
	return IngestEventResult{EventID: id, Created: created}, nil
}

// GetTocRoot returns the top-level (Year) TOC nodes.
func (f *Facade) GetTocRoot(ctx context.Context) ([]types.TocNode, error) {
	nodes, err := f.tocReader.GetTocRoot(ctx)
	if err != nil {
		return nil, apierr.Translate(err)
	}
	return nodes, nil
}

// GetNode resolves a single TOC node by id.
func (f *Facade) GetNode(ctx context.Context, nodeID string) (types.TocNode, error) {
	node, err := f.tocReader.GetNode(ctx, nodeID)
	if err != nil {
		return types.TocNode{}, apierr.Translate(err)
	}
	return node, nil
}

// BrowseToc lists a node's children with a continuation token.
func (f *Facade) BrowseToc(ctx context.Context, nodeID string, limit int, continuation string) ([]types.TocNode, string, error) {
	children, next, err := f.tocReader.BrowseToc(ctx, nodeID, limit, continuation)
	if err != nil {
		return nil, "", apierr.Translate(err)
	}
	return children, next, nil
}

// GetEvents range-scans raw events.
func (f *Facade) GetEvents(ctx context.Context, fromMs, toMs int64, limit int) ([]types.Event, error) {
	events, err := f.store.GetEventsInRange(fromMs, toMs)
	if err != nil {
		return nil, apierr.Translate(err)
	}
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

// ExpandGrip resolves a grip to its excerpt window.
func (f *Facade) ExpandGrip(ctx context.Context, gripID string, before, after int) (grip.ExpandedGrip, error) {
	expanded, err := f.expander.Expand(ctx, gripID, before, after)
	if err != nil {
		return grip.ExpandedGrip{}, apierr.Translate(err)
	}
	return expanded, nil
}

// RouteQuery routes a query through the retrieval policy.
func (f *Facade) RouteQuery(ctx context.Context, query string, opts retrieval.RouteOptions) (retrieval.RouteResult, error) {
	if f.policy == nil {
		return retrieval.RouteResult{}, apierr.Translate(fmt.Errorf("retrieval policy not configured"))
	}
	result, err := f.policy.Route(ctx, query, opts)
	if err != nil {
		return retrieval.RouteResult{}, apierr.Translate(err)
	}
	return result, nil
}

// GetSchedulerStatus reports every registered job's status.
func (f *Facade) GetSchedulerStatus(ctx context.Context) ([]scheduler.Status, error) {
	if f.sched == nil {
		return nil, apierr.Translate(fmt.Errorf("scheduler not configured"))
	}
	return f.sched.ListJobs(), nil
}

// PauseJob pauses a named scheduled job.
func (f *Facade) PauseJob(ctx context.Context, name string) error {
	if f.sched == nil {
		return apierr.Translate(fmt.Errorf("scheduler not configured"))
	}
	if err := f.sched.Pause(name); err != nil {
		return apierr.Translate(err)
	}
	return nil
}

// SystemStats reports this process's resource usage, useful for
// diagnosing a deployment that feels slow or memory-hungry.
type SystemStats struct {
	CPUPercent    float64
	MemoryInUseMB float64
	EventCount    int
}

// GetSystemStats reports process-level CPU/memory usage and the total
// event count, so an operator can tell an ingest slowdown from a
// retrieval slowdown without attaching a profiler.
func (f *Facade) GetSystemStats(ctx context.Context) (SystemStats, error) {
	count, err := f.store.EventCount()
	if err != nil {
		return SystemStats{}, apierr.Translate(err)
	}
	return SystemStats{
		CPUPercent:    sysmetrics.CPUPercent(),
		MemoryInUseMB: float64(sysmetrics.MemoryInuse()) / (1024 * 1024),
		EventCount:    count,
	}, nil
}

// ResumeJob resumes a named scheduled job.
func (f *Facade) ResumeJob(ctx context.Context, name string) error {
	if f.sched == nil {
		return apierr.Translate(fmt.Errorf("scheduler not configured"))
	}
	if err := f.sched.Resume(name); err != nil {
		return apierr.Translate(err)
	}
	return nil
}
