package worker

import (
	"context"
	"log/slog"
	"time"
)

// Pruner drops expired entries and reports how many went
type Pruner interface {
	Prune() int
	Len() int
}

// Janitor periodically evicts expired entries from in-memory caches
type Janitor struct {
	caches   map[string]Pruner
	logger   *slog.Logger
	interval time.Duration
}

// NewJanitor creates a janitor over named caches
func NewJanitor(caches map[string]Pruner, logger *slog.Logger, interval time.Duration) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Janitor{caches: caches, logger: logger, interval: interval}
}

// Start runs until ctx is cancelled
func (j *Janitor) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("cache janitor started", slog.Duration("interval", j.interval))

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("cache janitor stopped")
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *Janitor) sweep() int {
	total := 0
	for name, c := range j.caches {
		n := c.Prune()
		if n > 0 {
			j.logger.Debug("pruned cache",
				slog.String("cache", name),
				slog.Int("entries", n),
				slog.Int("remaining", c.Len()),
			)
		}
		total += n
	}
	return total
}
