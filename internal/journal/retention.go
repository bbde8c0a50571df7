package journal

import (
	"context"
	"time"
)

// DefaultPruneInterval is how often Retain deletes expired events.
const DefaultPruneInterval = time.Hour

// Retain deletes events older than retention once at start and then every
// interval, until ctx is cancelled. A non-positive retention returns at once.
func Retain(ctx context.Context, repo Repository, retention, interval time.Duration, logger Logger) {
	if retention <= 0 || repo == nil {
		return
	}
	if interval <= 0 {
		interval = DefaultPruneInterval
	}

	if logger == nil {
		logger = noopLogger{}
	}

	prune := func() {
		pruneCtx, cancel := context.WithTimeout(ctx, appendTimeout)
		defer cancel()
		n, err := repo.Prune(pruneCtx, time.Now().Add(-retention))
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn("pruning journal", "error", err)
			}
			return
		}
		if n > 0 {
			logger.Info("pruned journal events", "deleted", n, "retention", retention.String())
		}
	}

	prune()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}
