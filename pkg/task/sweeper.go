package task

import (
	"context"
	"log/slog"
	"time"

	"github.com/kadirpekel/quoter/pkg/config"
)

// Sweeper periodically removes expired terminal tasks from the registry.
// Tasks stay queryable for the configured grace period after reaching a
// terminal state so late pollers can still fetch the outcome.
type Sweeper struct {
	registry *Registry
	interval time.Duration
}

// NewSweeper creates a sweeper for the registry.
func NewSweeper(registry *Registry, cfg config.TaskConfig) *Sweeper {
	interval := cfg.SweepInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Sweeper{
		registry: registry,
		interval: interval,
	}
}

// Run sweeps on the configured interval until the context is canceled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.registry.SweepExpired(); removed > 0 {
				slog.Debug("Swept expired tasks", "removed", removed, "remaining", s.registry.Len())
			}
		}
	}
}
