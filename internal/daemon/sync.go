// File path: internal/daemon/sync.go

package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/recollect-dev/recollect/internal/adapters"
	"github.com/recollect-dev/recollect/internal/catalog"
	"github.com/recollect-dev/recollect/internal/common"
	"github.com/recollect-dev/recollect/internal/config"
	"github.com/recollect-dev/recollect/internal/extract"
)

// SyncOptions control one sync pass. RunID, when set, restricts the pass to
// that single session.
type SyncOptions struct {
	RunID       string
	AgentFilter []string
	Window      string
	Since       string
	Until       string
	MaxSessions int
	NoExtract   bool
	Force       bool
	DryRun      bool
	IgnoreLock  bool
	Trigger     string
}

// Runner holds the shared pieces every daemon operation needs.
type Runner struct {
	Config    config.Config
	Store     *catalog.Store
	Registry  *adapters.Registry
	Extractor extract.Extractor
}

// NewRunner builds a runner over an open catalog store. When the config
// carries an OpenAI key the extractor calls the model; otherwise the
// deterministic offline extractor is used.
func NewRunner(cfg config.Config, store *catalog.Store) *Runner {
	runner := &Runner{
		Config:   cfg,
		Store:    store,
		Registry: adapters.NewRegistry(cfg.PlatformsPath),
	}
	if cfg.OpenAIAPIKey != "" {
		extractor, err := extract.NewOpenAIExtractor(cfg.OpenAIAPIKey, cfg.Model, cfg.AgentTimeout)
		if err == nil {
			runner.Extractor = extractor
			return runner
		}
		common.Logger().Warn("openai extractor unavailable, falling back offline", "error", err)
	}
	runner.Extractor = extract.NewOfflineExtractor()
	return runner
}

// RunSyncOnce executes one discovery-and-extraction pass. The returned
// summary is serializable for --json output and the service_runs record.
func (r *Runner) RunSyncOnce(ctx context.Context, opts SyncOptions) (int, map[string]any) {
	if opts.Trigger == "" {
		opts.Trigger = "cli"
	}
	serviceRunID := uuid.NewString()
	summary := map[string]any{
		"run_id":  serviceRunID,
		"trigger": opts.Trigger,
		"dry_run": opts.DryRun,
	}
	if opts.RunID != "" {
		summary["target_run_id"] = opts.RunID
	}

	start, end, err := ResolveWindowBounds(opts.Window, opts.Since, opts.Until, time.Now().UTC())
	if err != nil {
		summary["error"] = err.Error()
		return ExitUsage, summary
	}
	if start != nil {
		summary["window_start"] = start.Format(time.RFC3339)
	}
	if end != nil {
		summary["window_end"] = end.Format(time.RFC3339)
	}

	lock, err := catalog.AcquireLock(filepath.Dir(r.Store.Path()), opts.IgnoreLock)
	if err != nil {
		summary["error"] = err.Error()
		return ExitError, summary
	}
	defer lock.Release()

	startedAt := time.Now().UTC()
	agents, err := r.Registry.ConnectedAgents(opts.AgentFilter)
	if err != nil {
		return r.finishSync(serviceRunID, opts.DryRun, summary, startedAt, ExitError, err)
	}
	if len(agents) == 0 {
		summary["warning"] = "no connected platforms; run `recollect connect` first"
	}

	stats, err := r.Store.IndexNewSessions(agents, opts.RunID, start, end, opts.MaxSessions, opts.DryRun, opts.Force)
	summary["discovered"] = stats.Discovered
	summary["indexed"] = stats.Indexed
	summary["updated"] = stats.Updated
	summary["skipped"] = stats.Skipped
	summary["index_errors"] = stats.Errors
	if err != nil {
		return r.finishSync(serviceRunID, opts.DryRun, summary, startedAt, ExitError, err)
	}

	if !opts.NoExtract && !opts.DryRun && len(stats.RunIDs) > 0 {
		report := r.extractSessions(ctx, agents, stats.RunIDs)
		summary["extracted_sessions"] = report.Succeeded
		summary["extract_failures"] = report.Failed
		if len(report.FailedRuns) > 0 {
			summary["failed_runs"] = report.FailedRuns
		}
	}
	return r.finishSync(serviceRunID, opts.DryRun, summary, startedAt, ExitOK, nil)
}

func (r *Runner) finishSync(serviceRunID string, dryRun bool, summary map[string]any, startedAt time.Time, code int, err error) (int, map[string]any) {
	if err != nil {
		summary["error"] = err.Error()
		common.Logger().Error("sync failed", "run_id", serviceRunID, "error", err)
	}
	if dryRun {
		return code, summary
	}
	status := "ok"
	if code != ExitOK {
		status = "error"
	}
	finished := time.Now().UTC().Format(time.RFC3339)
	record := catalog.ServiceRun{
		Service:    "sync",
		RunID:      serviceRunID,
		Status:     status,
		StartedAt:  startedAt.Format(time.RFC3339),
		FinishedAt: &finished,
		ExitCode:   code,
		Details:    catalog.EncodeDetails(summary),
	}
	if recordErr := r.Store.RecordServiceRun(record); recordErr != nil {
		common.Logger().Warn("service run not recorded", "error", recordErr)
	}
	return code, summary
}

// extractSessions re-reads each newly indexed session fresh from platform
// storage and writes the derived fields back. Extraction failures mark the
// session as errored but never abort the batch.
func (r *Runner) extractSessions(ctx context.Context, agents []adapters.ConnectedAgent, runIDs []string) extract.Report {
	byName := make(map[string]adapters.ConnectedAgent, len(agents))
	for _, agent := range agents {
		byName[agent.Adapter.Name()] = agent
	}
	var results []extract.Result
	for _, runID := range runIDs {
		result := extract.Result{RunID: runID}
		if err := r.extractOne(ctx, byName, runID); err != nil {
			result.Error = err.Error()
			if markErr := r.Store.MarkSessionError(runID, err.Error()); markErr != nil {
				common.Logger().Warn("session error not recorded", "run_id", runID, "error", markErr)
			}
		} else {
			result.OK = true
		}
		results = append(results, result)
	}
	return extract.BuildReport(results)
}

func (r *Runner) extractOne(ctx context.Context, agents map[string]adapters.ConnectedAgent, runID string) error {
	doc, err := r.Store.FetchSessionDoc(runID)
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("run %s vanished from catalog", runID)
	}
	agent, ok := agents[doc.AgentType]
	if !ok {
		return fmt.Errorf("platform %s not connected", doc.AgentType)
	}
	session := agent.Adapter.ReadSession(doc.SessionPath, runID)
	if session == nil {
		return fmt.Errorf("transcript unreadable at %s", doc.SessionPath)
	}
	summary, err := r.Extractor.Extract(ctx, extract.Candidate{
		RunID:     runID,
		AgentType: doc.AgentType,
		RepoName:  doc.RepoName,
		Session:   session,
	})
	if err != nil {
		return err
	}
	// The tags column holds a JSON array.
	if summary.Tags == nil {
		summary.Tags = []string{}
	}
	encoded, err := json.Marshal(summary.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	tags := string(encoded)
	status := "completed"
	return r.Store.UpdateSessionExtractFields(runID, catalog.ExtractFields{
		SummaryText: &summary.SummaryText,
		Tags:        &tags,
		Outcome:     &summary.Outcome,
		Status:      &status,
	})
}
