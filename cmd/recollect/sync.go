// File path: cmd/recollect/sync.go

package main

import (
	"github.com/spf13/cobra"

	"github.com/recollect-dev/recollect/internal/daemon"
)

func newSyncCmd() *cobra.Command {
	opts := daemon.SyncOptions{}
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Discover and index new sessions from connected platforms",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, runner, err := loadRuntime()
			if err != nil {
				return err
			}
			defer store.Close()
			code, summary := runner.RunSyncOnce(cmd.Context(), opts)
			return finishRun(code, summary)
		},
	}
	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "sync only the session with this run id")
	cmd.Flags().StringSliceVar(&opts.AgentFilter, "agent", nil, "only sync these platforms")
	cmd.Flags().StringVar(&opts.Window, "window", "30d", "relative window (e.g. 30d, 12h, all)")
	cmd.Flags().StringVar(&opts.Since, "since", "", "absolute window start (RFC 3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.Until, "until", "", "absolute window end")
	cmd.Flags().IntVar(&opts.MaxSessions, "max-sessions", 50, "cap on sessions indexed per pass (0 = unbounded)")
	cmd.Flags().BoolVar(&opts.NoExtract, "no-extract", false, "skip summary extraction")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "re-index sessions already in the catalog")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report what would be indexed without writing")
	cmd.Flags().BoolVar(&opts.IgnoreLock, "ignore-lock", false, "run even if another sync holds the lock")
	return cmd
}
