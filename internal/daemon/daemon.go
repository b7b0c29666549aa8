// File path: internal/daemon/daemon.go

package daemon

import (
	"context"
	"time"

	"github.com/recollect-dev/recollect/internal/common"
)

// maintainEvery is how many sync ticks pass between maintenance runs.
const maintainEvery = 12

// RunForever polls on the configured interval, running a sync pass each
// tick and a maintenance pass every maintainEvery ticks. Returns when the
// context is canceled.
func (r *Runner) RunForever(ctx context.Context, poll time.Duration, opts SyncOptions) error {
	if poll <= 0 {
		poll = r.Config.PollInterval
	}
	opts.Trigger = "daemon"
	common.Logger().Info("daemon started", "poll", poll.String())

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	tick := 0
	for {
		code, summary := r.RunSyncOnce(ctx, opts)
		if code != ExitOK {
			common.Logger().Warn("daemon sync pass failed", "exit", code, "summary", summary["error"])
		}
		tick++
		if tick%maintainEvery == 0 {
			mcode, msummary := r.RunMaintainOnce(ctx, MaintainOptions{
				Window:      opts.Window,
				AgentFilter: opts.AgentFilter,
			})
			if mcode != ExitOK {
				common.Logger().Warn("daemon maintenance pass failed", "exit", mcode, "summary", msummary["error"])
			}
		}
		select {
		case <-ctx.Done():
			common.Logger().Info("daemon stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
