package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"

	"github.com/m3rciful/partsbot/core/logger"
)

// Broadcast calls send once per recipient, each on its own goroutine, and
// waits for all of them. A failure for one recipient never stops the others.
// The returned error is nil or a *multierror.Error listing every failure.
func Broadcast(ctx context.Context, recipients []int64, send func(ctx context.Context, to int64) error) error {
	var g multierror.Group
	for _, to := range recipients {
		g.Go(func() error {
			if err := send(ctx, to); err != nil {
				logger.Warn(ctx, "notify", "notify.failed",
					slog.Int64("recipient", to),
					logger.Err(err),
				)
				return fmt.Errorf("recipient %d: %w", to, err)
			}
			return nil
		})
	}
	merr := g.Wait()
	if merr == nil || len(merr.Errors) == 0 {
		return nil
	}
	return merr
}

// Failed returns how many recipients an error from Broadcast covers.
func Failed(err error) int {
	if err == nil {
		return 0
	}
	if merr, ok := err.(*multierror.Error); ok {
		return merr.Len()
	}
	return 1
}
