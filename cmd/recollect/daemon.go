// File path: cmd/recollect/daemon.go

package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/recollect-dev/recollect/internal/daemon"
)

func newDaemonCmd() *cobra.Command {
	var (
		once        bool
		pollSeconds int
	)
	opts := daemon.SyncOptions{}
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run sync continuously on a polling loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, runner, err := loadRuntime()
			if err != nil {
				return err
			}
			defer store.Close()

			if once {
				opts.Trigger = "daemon"
				code, summary := runner.RunSyncOnce(cmd.Context(), opts)
				return finishRun(code, summary)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			var poll time.Duration
			if pollSeconds > 0 {
				poll = time.Duration(pollSeconds) * time.Second
			}
			err = runner.RunForever(ctx, poll, opts)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single pass and exit")
	cmd.Flags().IntVar(&pollSeconds, "poll-seconds", 0, "polling interval in seconds (default: configured poll interval)")
	cmd.Flags().StringSliceVar(&opts.AgentFilter, "agent", nil, "only sync these platforms")
	cmd.Flags().StringVar(&opts.Window, "window", "30d", "relative window per pass")
	cmd.Flags().IntVar(&opts.MaxSessions, "max-sessions", 50, "cap on sessions indexed per pass (0 = unbounded)")
	cmd.Flags().BoolVar(&opts.NoExtract, "no-extract", false, "skip summary extraction")
	return cmd
}
