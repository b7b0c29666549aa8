// File path: internal/daemon/sync_test.go

package daemon

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/recollect-dev/recollect/internal/catalog"
	"github.com/recollect-dev/recollect/internal/config"
	"github.com/recollect-dev/recollect/internal/extract"
)

func writeClaudeSession(t *testing.T, root, id, prompt string) {
	t.Helper()
	project := filepath.Join(root, "-home-dev-projects-widget")
	if err := os.MkdirAll(project, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	lines := []string{
		`{"sessionId":"` + id + `","cwd":"/home/dev/projects/widget","type":"user","timestamp":"2026-08-20T10:00:00Z","message":{"role":"user","content":"` + prompt + `"}}`,
		`{"sessionId":"` + id + `","cwd":"/home/dev/projects/widget","type":"assistant","timestamp":"2026-08-20T10:00:05Z","message":{"role":"assistant","content":"done"}}`,
	}
	path := filepath.Join(project, id+".jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}
}

func writeClaudeFixture(t *testing.T, root string) {
	writeClaudeSession(t, root, "sess-1", "tighten the retry loop")
}

func testRunner(t *testing.T) *Runner {
	t.Helper()
	dir := t.TempDir()
	claudeRoot := filepath.Join(dir, "claude-projects")
	writeClaudeFixture(t, claudeRoot)

	store, err := catalog.Open(filepath.Join(dir, "index", "sessions.sqlite3"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := config.Config{
		DataDir:       dir,
		PlatformsPath: filepath.Join(dir, "platforms.json"),
		ClaudeDir:     claudeRoot,
	}
	runner := NewRunner(cfg, store)
	if _, ok := runner.Extractor.(*extract.OfflineExtractor); !ok {
		t.Fatalf("expected offline extractor without api key, got %T", runner.Extractor)
	}
	if _, err := runner.Registry.Connect("claude", claudeRoot); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return runner
}

func TestRunSyncOnceIndexesAndExtracts(t *testing.T) {
	runner := testRunner(t)
	code, summary := runner.RunSyncOnce(context.Background(), SyncOptions{Window: "all"})
	if code != ExitOK {
		t.Fatalf("exit %d, summary %v", code, summary)
	}
	if summary["indexed"] != 1 {
		t.Fatalf("expected 1 indexed, got %v", summary["indexed"])
	}
	if summary["extracted_sessions"] != 1 {
		t.Fatalf("expected 1 extracted, got %v", summary)
	}

	doc, err := runner.Store.FetchSessionDoc("sess-1")
	if err != nil || doc == nil {
		t.Fatalf("doc missing: %v %v", doc, err)
	}
	if doc.SummaryText == nil || !strings.Contains(*doc.SummaryText, "tighten the retry loop") {
		t.Fatalf("summary not written back: %+v", doc.SummaryText)
	}
	if doc.Tags == nil {
		t.Fatal("tags not written back")
	}
	var tags []string
	if err := json.Unmarshal([]byte(*doc.Tags), &tags); err != nil {
		t.Fatalf("tags column must hold a JSON array, got %q: %v", *doc.Tags, err)
	}
	joined := strings.Join(tags, " ")
	if !strings.Contains(joined, "agent:claude") || !strings.Contains(joined, "repo:widget") {
		t.Fatalf("unexpected tags: %v", tags)
	}

	run, err := runner.Store.LatestServiceRun("sync")
	if err != nil || run == nil {
		t.Fatalf("sync run not recorded: %v %v", run, err)
	}
	if run.Status != "ok" || run.ExitCode != ExitOK {
		t.Fatalf("unexpected run record: %+v", run)
	}
}

func TestRunSyncOnceTargetedRunID(t *testing.T) {
	runner := testRunner(t)
	entries, err := runner.Registry.List()
	if err != nil || len(entries) != 1 {
		t.Fatalf("registry entries: %v %v", entries, err)
	}
	writeClaudeSession(t, entries[0].Path, "sess-2", "rename the config loader")

	code, summary := runner.RunSyncOnce(context.Background(), SyncOptions{Window: "all", RunID: "sess-2"})
	if code != ExitOK {
		t.Fatalf("targeted sync failed: %v", summary)
	}
	if summary["indexed"] != 1 || summary["discovered"] != 1 {
		t.Fatalf("targeted pass should take only the named session: %v", summary)
	}
	if summary["target_run_id"] != "sess-2" {
		t.Fatalf("target not reported: %v", summary)
	}
	if summary["run_id"] == "sess-2" {
		t.Fatal("service run id must be distinct from the target session")
	}
	if doc, _ := runner.Store.FetchSessionDoc("sess-1"); doc != nil {
		t.Fatal("untargeted session must stay out of the catalog")
	}
	doc, err := runner.Store.FetchSessionDoc("sess-2")
	if err != nil || doc == nil {
		t.Fatalf("target doc missing: %v %v", doc, err)
	}
	if doc.SummaryText == nil || !strings.Contains(*doc.SummaryText, "rename the config loader") {
		t.Fatalf("target not extracted: %+v", doc.SummaryText)
	}

	// Targeting an already-cataloged session refreshes it.
	code, summary = runner.RunSyncOnce(context.Background(), SyncOptions{Window: "all", RunID: "sess-2"})
	if code != ExitOK || summary["updated"] != 1 {
		t.Fatalf("targeted rescan should refresh the row: %v", summary)
	}
}

func TestRunSyncOnceIdempotent(t *testing.T) {
	runner := testRunner(t)
	if code, _ := runner.RunSyncOnce(context.Background(), SyncOptions{Window: "all"}); code != ExitOK {
		t.Fatal("first sync failed")
	}
	code, summary := runner.RunSyncOnce(context.Background(), SyncOptions{Window: "all"})
	if code != ExitOK {
		t.Fatalf("second sync failed: %v", summary)
	}
	if summary["indexed"] != 0 || summary["discovered"] != 0 {
		t.Fatalf("second pass should find nothing new: %v", summary)
	}
}

func TestRunSyncOnceUsageErrorBeforeCatalogIO(t *testing.T) {
	runner := testRunner(t)
	code, summary := runner.RunSyncOnce(context.Background(), SyncOptions{Window: "30x"})
	if code != ExitUsage {
		t.Fatalf("bad window should exit %d, got %d", ExitUsage, code)
	}
	if summary["error"] == nil {
		t.Fatal("summary should carry the parse error")
	}
	run, err := runner.Store.LatestServiceRun("sync")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if run != nil {
		t.Fatalf("usage error must not record a service run: %+v", run)
	}
	count, _ := runner.Store.CountFTSIndexed()
	if count != 0 {
		t.Fatalf("usage error must not index anything: %d", count)
	}
}

func TestRunSyncOnceDryRun(t *testing.T) {
	runner := testRunner(t)
	code, summary := runner.RunSyncOnce(context.Background(), SyncOptions{Window: "all", DryRun: true})
	if code != ExitOK {
		t.Fatalf("dry run failed: %v", summary)
	}
	if summary["discovered"] != 1 || summary["indexed"] != 0 {
		t.Fatalf("dry run stats wrong: %v", summary)
	}
	count, _ := runner.Store.CountFTSIndexed()
	if count != 0 {
		t.Fatalf("dry run wrote rows: %d", count)
	}
	if run, _ := runner.Store.LatestServiceRun("sync"); run != nil {
		t.Fatalf("dry run must not record a service run: %+v", run)
	}
}

func TestRunSyncOnceNoExtract(t *testing.T) {
	runner := testRunner(t)
	code, summary := runner.RunSyncOnce(context.Background(), SyncOptions{Window: "all", NoExtract: true})
	if code != ExitOK {
		t.Fatalf("sync failed: %v", summary)
	}
	doc, _ := runner.Store.FetchSessionDoc("sess-1")
	if doc == nil {
		t.Fatal("doc missing")
	}
	if doc.SummaryText != nil {
		t.Fatalf("no-extract must leave summary_text empty: %v", *doc.SummaryText)
	}
}

func TestRunSyncOnceLockConflict(t *testing.T) {
	runner := testRunner(t)
	lock, err := catalog.AcquireLock(filepath.Dir(runner.Store.Path()), false)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer lock.Release()

	code, summary := runner.RunSyncOnce(context.Background(), SyncOptions{Window: "all"})
	if code != ExitError {
		t.Fatalf("held lock should fail sync, got %d (%v)", code, summary)
	}

	code, _ = runner.RunSyncOnce(context.Background(), SyncOptions{Window: "all", IgnoreLock: true})
	if code != ExitOK {
		t.Fatalf("ignore-lock should succeed, got %d", code)
	}
}

func TestRunMaintainOnce(t *testing.T) {
	runner := testRunner(t)
	if code, _ := runner.RunSyncOnce(context.Background(), SyncOptions{Window: "all"}); code != ExitOK {
		t.Fatal("sync failed")
	}
	code, summary := runner.RunMaintainOnce(context.Background(), MaintainOptions{Window: "all"})
	if code != ExitOK {
		t.Fatalf("maintain failed: %v", summary)
	}
	if summary["partial"] != false {
		t.Fatalf("expected complete run: %v", summary)
	}
	if summary["fts_rows"] != 1 || summary["session_docs"] != 1 {
		t.Fatalf("consolidate counts wrong: %v", summary)
	}
	if summary["sessions_in_window"] != 1 {
		t.Fatalf("report count wrong: %v", summary)
	}
	run, err := runner.Store.LatestServiceRun("maintain")
	if err != nil || run == nil {
		t.Fatalf("maintain run not recorded: %v %v", run, err)
	}
}

func TestRunMaintainOnceUsageError(t *testing.T) {
	runner := testRunner(t)
	code, _ := runner.RunMaintainOnce(context.Background(), MaintainOptions{Window: "bogus"})
	if code != ExitUsage {
		t.Fatalf("bad window should exit %d, got %d", ExitUsage, code)
	}
}

func TestRunMaintainOnceUnknownStepSkipped(t *testing.T) {
	runner := testRunner(t)
	code, summary := runner.RunMaintainOnce(context.Background(), MaintainOptions{
		Steps: []string{"report", "polish"},
	})
	if code != ExitOK {
		t.Fatalf("unknown step must be skipped, not fatal: %v", summary)
	}
	if summary["partial"] != false {
		t.Fatalf("run should not be partial: %v", summary)
	}
}
