package personalization

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Scheduler runs the daily maintenance sweep: temporary-block expiry
// cleanup, soft-to-hard promotion, and weight-delta folding.
type Scheduler struct {
	engine *Engine
	logger zerolog.Logger
}

func NewScheduler(engine *Engine, logger zerolog.Logger) *Scheduler {
	return &Scheduler{engine: engine, logger: logger.With().Str("component", "scheduler").Logger()}
}

func (s *Scheduler) Start(ctx context.Context) {
	// Maintenance sweep daily at 3 AM
	go s.runDaily(ctx, 3, 0, s.engine.RunMaintenanceSweep)
}

func (s *Scheduler) runDaily(ctx context.Context, hour, minute int, task func(context.Context) error) {
	for {
		now := time.Now()
		next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		if now.After(next) {
			next = next.Add(24 * time.Hour)
		}

		timer := time.NewTimer(next.Sub(now))

		select {
		case <-timer.C:
			if err := task(ctx); err != nil {
				s.logger.Error().Err(err).Msg("scheduled task failed")
			}
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}
