package state

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/m3rciful/partsbot/core/logger"
)

// DefaultSweepSchedule runs the idle-session sweep every ten minutes.
const DefaultSweepSchedule = "@every 10m"

// ScheduleSweep starts a cron job that calls s.Sweep(maxIdle) on schedule.
// The caller owns the returned scheduler and must Stop it on shutdown.
// It returns nil, nil when maxIdle is not positive.
func ScheduleSweep(schedule string, maxIdle time.Duration, s Sweeper) (*cron.Cron, error) {
	if maxIdle <= 0 || s == nil {
		return nil, nil
	}
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if n := s.Sweep(maxIdle); n > 0 {
			logger.Info(context.Background(), "tg.state", "session.swept",
				slog.Int("count", n),
				slog.Duration("max_idle", maxIdle),
			)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("state: invalid sweep schedule %q: %w", schedule, err)
	}
	c.Start()
	return c, nil
}
