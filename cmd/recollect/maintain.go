// File path: cmd/recollect/maintain.go

package main

import (
	"github.com/spf13/cobra"

	"github.com/recollect-dev/recollect/internal/daemon"
)

func newMaintainCmd() *cobra.Command {
	opts := daemon.MaintainOptions{}
	cmd := &cobra.Command{
		Use:   "maintain",
		Short: "Run catalog maintenance (consolidate, decay, report)",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, runner, err := loadRuntime()
			if err != nil {
				return err
			}
			defer store.Close()
			code, summary := runner.RunMaintainOnce(cmd.Context(), opts)
			return finishRun(code, summary)
		},
	}
	cmd.Flags().StringSliceVar(&opts.Steps, "steps", nil, "maintenance steps to run (default: consolidate,decay,report)")
	cmd.Flags().StringVar(&opts.Window, "window", "", "relative window for the report step")
	cmd.Flags().StringVar(&opts.Since, "since", "", "absolute window start")
	cmd.Flags().StringVar(&opts.Until, "until", "", "absolute window end")
	cmd.Flags().StringSliceVar(&opts.AgentFilter, "agent", nil, "narrow the report step to these platforms")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "run steps even when counts look consistent")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report without modifying the catalog")
	return cmd
}
