// Package summarize defines the Summarizer contract and its two
// implementations: a deterministic Mock used by tests and as the
// zero-configuration default, and an APIBackend that calls a remote
// chat-completion style endpoint.
package summarize

import (
	"context"
	"errors"

	"github.com/SpillwaveSolutions/agent-memory/internal/types"
)

// Summary is the output of either summarization operation.
type Summary struct {
	Title    string
	Bullets  []string
	Keywords []string
}

// Sentinel errors matching the Summarizer failure taxonomy.
var (
	ErrNoEvents   = errors.New("summarize: no events to summarize")
	ErrRateLimit  = errors.New("summarize: rate limited")
	ErrAPI        = errors.New("summarize: backend api error")
	ErrParse      = errors.New("summarize: could not parse response")
	ErrTimeout    = errors.New("summarize: timed out")
)

// Summarizer is polymorphic over summarizing a batch of raw events and
// summarizing a batch of already-produced child summaries (for rollups).
type Summarizer interface {
	SummarizeEvents(ctx context.Context, events []types.Event) (Summary, error)
	SummarizeChildren(ctx context.Context, children []Summary) (Summary, error)
}
