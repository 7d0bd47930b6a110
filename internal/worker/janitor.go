package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/yourorg/jobboard/internal/observability/metrics"
	"github.com/yourorg/jobboard/pkg/cache"
)

// Janitor periodically purges expired in-process cache entries and
// refreshes the queue-depth gauge
type Janitor struct {
	cache    *cache.Cache
	queue    *Queue
	logger   *slog.Logger
	interval time.Duration
}

// NewJanitor creates a new janitor
func NewJanitor(c *cache.Cache, queue *Queue, logger *slog.Logger, interval time.Duration) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{
		cache:    c,
		queue:    queue,
		logger:   logger,
		interval: interval,
	}
}

// Start begins the janitor loop
func (j *Janitor) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("janitor started", slog.Duration("interval", j.interval))

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("janitor stopped")
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	purged := j.cache.PurgeExpired()
	if purged > 0 {
		j.logger.Debug("purged expired cache entries", slog.Int("count", purged))
	}

	if j.queue != nil {
		depth, err := j.queue.Depth(ctx)
		if err != nil {
			j.logger.Warn("failed to read queue depth", slog.String("error", err.Error()))
			return
		}
		metrics.SetQueueDepth(depth)
	}
}
