// File path: internal/daemon/maintain.go

package daemon

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/recollect-dev/recollect/internal/catalog"
	"github.com/recollect-dev/recollect/internal/common"
)

// MaintainOptions control one maintenance pass.
type MaintainOptions struct {
	RunID       string
	Steps       []string
	Window      string
	Since       string
	Until       string
	AgentFilter []string
	Force       bool
	DryRun      bool
}

var defaultMaintainSteps = []string{"consolidate", "decay", "report"}

// serviceRunRetention is how long sync/maintain history is kept before the
// decay step prunes it.
const serviceRunRetention = 90 * 24 * time.Hour

// RunMaintainOnce executes the maintenance steps in order. A failing step
// marks the run partial but later steps still execute.
func (r *Runner) RunMaintainOnce(ctx context.Context, opts MaintainOptions) (int, map[string]any) {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	steps := opts.Steps
	if len(steps) == 0 {
		steps = defaultMaintainSteps
	}
	summary := map[string]any{
		"run_id":  opts.RunID,
		"steps":   steps,
		"dry_run": opts.DryRun,
	}

	start, end, err := ResolveWindowBounds(opts.Window, opts.Since, opts.Until, time.Now().UTC())
	if err != nil {
		summary["error"] = err.Error()
		return ExitUsage, summary
	}

	startedAt := time.Now().UTC()
	partial := false
	for _, step := range steps {
		select {
		case <-ctx.Done():
			summary["error"] = ctx.Err().Error()
			partial = true
		default:
		}
		if partial {
			break
		}
		var stepErr error
		switch step {
		case "consolidate":
			stepErr = r.consolidateStep(summary, opts.DryRun)
		case "decay":
			stepErr = r.decayStep(summary, opts.DryRun)
		case "report":
			stepErr = r.reportStep(summary, start, end, opts.AgentFilter)
		default:
			common.Logger().Warn("unknown maintenance step skipped", "step", step)
			continue
		}
		if stepErr != nil {
			partial = true
			summary["error"] = stepErr.Error()
			common.Logger().Error("maintenance step failed", "step", step, "error", stepErr)
		}
	}
	summary["partial"] = partial

	code := ExitOK
	status := "ok"
	if partial {
		code = ExitError
		status = "partial"
	}
	if !opts.DryRun {
		finished := time.Now().UTC().Format(time.RFC3339)
		record := catalog.ServiceRun{
			Service:    "maintain",
			RunID:      opts.RunID,
			Status:     status,
			StartedAt:  startedAt.Format(time.RFC3339),
			FinishedAt: &finished,
			ExitCode:   code,
			Details:    catalog.EncodeDetails(summary),
		}
		if err := r.Store.RecordServiceRun(record); err != nil {
			common.Logger().Warn("maintain run not recorded", "error", err)
		}
	}
	return code, summary
}

// consolidateStep verifies that every catalog row has exactly one
// full-text row and rebuilds the index when the two drift apart.
func (r *Runner) consolidateStep(summary map[string]any, dryRun bool) error {
	ftsCount, err := r.Store.CountFTSIndexed()
	if err != nil {
		return err
	}
	counts, err := r.Store.CountSessionJobsByStatus()
	if err != nil {
		return err
	}
	docCount := 0
	for _, n := range counts {
		docCount += n
	}
	summary["fts_rows"] = ftsCount
	summary["session_docs"] = docCount
	if ftsCount == docCount {
		summary["consolidated"] = 0
		return nil
	}
	if dryRun {
		summary["consolidated"] = docCount - ftsCount
		return nil
	}
	rebuilt, err := r.Store.RebuildFTS()
	if err != nil {
		return err
	}
	summary["consolidated"] = rebuilt
	return nil
}

// decayStep prunes service-run history past the retention horizon.
func (r *Runner) decayStep(summary map[string]any, dryRun bool) error {
	cutoff := time.Now().UTC().Add(-serviceRunRetention)
	if dryRun {
		summary["decayed_service_runs"] = 0
		return nil
	}
	pruned, err := r.Store.PruneServiceRuns(cutoff)
	if err != nil {
		return err
	}
	summary["decayed_service_runs"] = pruned
	return nil
}

// reportStep snapshots catalog health into the run summary.
func (r *Runner) reportStep(summary map[string]any, start, end *time.Time, agentFilter []string) error {
	_, total, err := r.Store.ListSessionsWindow(1, 0, agentFilter, start, end)
	if err != nil {
		return err
	}
	counts, err := r.Store.CountSessionJobsByStatus()
	if err != nil {
		return err
	}
	stats, err := r.Store.AggregateStats()
	if err != nil {
		return err
	}
	summary["sessions_in_window"] = total
	summary["status_counts"] = counts
	summary["messages"] = stats.Messages
	summary["tool_calls"] = stats.ToolCalls
	summary["total_tokens"] = stats.TotalTokens
	summary["extracted_docs"] = stats.ExtractedDocs
	return nil
}
