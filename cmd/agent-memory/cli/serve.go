package cli

import (
	"context"
	"log/slog"
)

// Serve builds the full app (storage, indexes, scheduler) and blocks
// until ctx is cancelled, then closes the BM25 index, stops the
// scheduler and closes storage, in that order. The vector index is
// neither saved nor closed here.
// There is no network listener yet: all access is in-process via the
// façade, the way the scheduler and indexing pipeline exercise it.
func Serve(ctx context.Context, logger *slog.Logger, homeFlag string) error {
	a, err := newApp(homeFlag, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Info("agent-memory running", "home", a.hd.Root())
	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}
