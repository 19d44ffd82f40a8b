package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/okrboard/internal/observability/metrics"
)

// Pruner drops expired entries. *cache.Cache satisfies it.
type Pruner interface {
	Prune() int
	Len() int
}

// CacheSweeper periodically evicts expired query results so entries for tenants
// nobody reads again do not pile up.
type CacheSweeper struct {
	cache    Pruner
	logger   *slog.Logger
	interval time.Duration
}

// NewCacheSweeper creates a sweeper. A non-positive interval defaults to one minute.
func NewCacheSweeper(cache Pruner, logger *slog.Logger, interval time.Duration) *CacheSweeper {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &CacheSweeper{cache: cache, logger: logger, interval: interval}
}

// Start runs the sweep loop until ctx is cancelled.
func (w *CacheSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("cache sweeper started", slog.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("cache sweeper stopped")
			return
		case <-ticker.C:
			w.Sweep()
		}
	}
}

// Sweep runs a single pass and returns the number of evicted entries.
func (w *CacheSweeper) Sweep() int {
	removed := w.cache.Prune()
	remaining := w.cache.Len()
	metrics.SetCacheEntries(remaining)
	if removed > 0 {
		w.logger.Debug("query cache swept",
			slog.Int("removed", removed),
			slog.Int("remaining", remaining),
		)
	}
	return removed
}
