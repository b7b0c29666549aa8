// File path: internal/catalog/catalog_test.go

package catalog

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "index", "sessions.sqlite3"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleDoc(runID string, start time.Time) SessionDoc {
	formatted := start.UTC().Format(time.RFC3339)
	return SessionDoc{
		RunID:         runID,
		AgentType:     "claude",
		SessionPath:   "/tmp/" + runID + ".jsonl",
		RepoName:      "widget",
		StartTime:     &formatted,
		Status:        "completed",
		DurationMS:    1200,
		MessageCount:  4,
		ToolCallCount: 2,
		Summaries:     `["fix the uploader retry loop"]`,
		Content:       "fix the uploader retry loop",
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sessions.sqlite3")
	first, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	first.Close()
	second, err := Open(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	second.Close()
}

func TestIndexSessionForFTSCreateThenUpdate(t *testing.T) {
	store := openTestStore(t)
	doc := sampleDoc("run-1", time.Now())

	created, err := store.IndexSessionForFTS(doc)
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	if !created {
		t.Fatal("first index should report created")
	}

	doc.MessageCount = 9
	created, err = store.IndexSessionForFTS(doc)
	if err != nil {
		t.Fatalf("reindex: %v", err)
	}
	if created {
		t.Fatal("reindex should not report created")
	}

	fetched, err := store.FetchSessionDoc("run-1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if fetched == nil || fetched.MessageCount != 9 {
		t.Fatalf("update not applied: %+v", fetched)
	}

	// One catalog row must map to exactly one FTS row.
	count, err := store.CountFTSIndexed()
	if err != nil {
		t.Fatalf("count fts: %v", err)
	}
	if count != 1 {
		t.Fatalf("fts row count = %d, want 1", count)
	}
}

func TestIndexedAtAdvancesOnEveryWrite(t *testing.T) {
	store := openTestStore(t)
	doc := sampleDoc("run-1", time.Now())
	if _, err := store.IndexSessionForFTS(doc); err != nil {
		t.Fatalf("index: %v", err)
	}
	first, err := store.FetchSessionDoc("run-1")
	if err != nil || first == nil {
		t.Fatalf("fetch: %v", err)
	}
	if _, err := store.IndexSessionForFTS(doc); err != nil {
		t.Fatalf("reindex: %v", err)
	}
	second, _ := store.FetchSessionDoc("run-1")

	before, err := time.Parse(time.RFC3339Nano, first.IndexedAt)
	if err != nil {
		t.Fatalf("parse first indexed_at %q: %v", first.IndexedAt, err)
	}
	after, err := time.Parse(time.RFC3339Nano, second.IndexedAt)
	if err != nil {
		t.Fatalf("parse second indexed_at %q: %v", second.IndexedAt, err)
	}
	if !after.After(before) {
		t.Fatalf("indexed_at did not advance: %s -> %s", first.IndexedAt, second.IndexedAt)
	}
	// Fixed-width fractions keep the stored strings sortable.
	if second.IndexedAt <= first.IndexedAt {
		t.Fatalf("indexed_at strings not ordered: %q <= %q", second.IndexedAt, first.IndexedAt)
	}
}

func TestIndexSessionRejectsEmptyRunID(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.IndexSessionForFTS(SessionDoc{}); err == nil {
		t.Fatal("expected error for empty run id")
	}
}

func TestFetchSessionDocAbsent(t *testing.T) {
	store := openTestStore(t)
	doc, err := store.FetchSessionDoc("ghost")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if doc != nil {
		t.Fatalf("expected nil for absent run, got %+v", doc)
	}
}

func TestUpdateSessionExtractFieldsPartial(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.IndexSessionForFTS(sampleDoc("run-1", time.Now())); err != nil {
		t.Fatalf("index: %v", err)
	}
	summary := "refactored retry handling"
	tags := `["agent:claude","repo:widget"]`
	if err := store.UpdateSessionExtractFields("run-1", ExtractFields{SummaryText: &summary, Tags: &tags}); err != nil {
		t.Fatalf("update: %v", err)
	}

	// A later partial update must not clobber the earlier summary.
	outcome := "success"
	if err := store.UpdateSessionExtractFields("run-1", ExtractFields{Outcome: &outcome}); err != nil {
		t.Fatalf("second update: %v", err)
	}
	doc, err := store.FetchSessionDoc("run-1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if doc.SummaryText == nil || *doc.SummaryText != summary {
		t.Fatalf("summary_text lost: %+v", doc.SummaryText)
	}
	if doc.Tags == nil || *doc.Tags != tags {
		t.Fatalf("tags lost: %+v", doc.Tags)
	}
	if doc.Outcome == nil || *doc.Outcome != outcome {
		t.Fatalf("outcome missing: %+v", doc.Outcome)
	}
}

func TestUpdateSessionExtractFieldsUnknownRun(t *testing.T) {
	store := openTestStore(t)
	summary := "x"
	if err := store.UpdateSessionExtractFields("ghost", ExtractFields{SummaryText: &summary}); err == nil {
		t.Fatal("expected error for unknown run")
	}
	// An all-nil update is a no-op even for unknown runs.
	if err := store.UpdateSessionExtractFields("ghost", ExtractFields{}); err != nil {
		t.Fatalf("empty update should be a no-op: %v", err)
	}
}

func TestMarkSessionErrorAndStatusCounts(t *testing.T) {
	store := openTestStore(t)
	for _, id := range []string{"run-1", "run-2", "run-3"} {
		if _, err := store.IndexSessionForFTS(sampleDoc(id, time.Now())); err != nil {
			t.Fatalf("index %s: %v", id, err)
		}
	}
	if err := store.MarkSessionError("run-2", "transcript unreadable"); err != nil {
		t.Fatalf("mark error: %v", err)
	}
	counts, err := store.CountSessionJobsByStatus()
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts["completed"] != 2 || counts["error"] != 1 {
		t.Fatalf("unexpected status counts: %v", counts)
	}
	doc, _ := store.FetchSessionDoc("run-2")
	if doc.ErrorCount != 1 {
		t.Fatalf("error count not bumped: %d", doc.ErrorCount)
	}
}

func TestResetClearsEverything(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.IndexSessionForFTS(sampleDoc("run-1", time.Now())); err != nil {
		t.Fatalf("index: %v", err)
	}
	if err := store.RecordServiceRun(ServiceRun{Service: "sync", Status: "ok"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	count, _ := store.CountFTSIndexed()
	if count != 0 {
		t.Fatalf("fts rows survived reset: %d", count)
	}
	run, err := store.LatestServiceRun("sync")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if run != nil {
		t.Fatalf("service runs survived reset: %+v", run)
	}
}

func TestServiceRunRoundTrip(t *testing.T) {
	store := openTestStore(t)
	if run, err := store.LatestServiceRun("sync"); err != nil || run != nil {
		t.Fatalf("expected no runs yet: %v %v", run, err)
	}
	details := EncodeDetails(map[string]any{"indexed": 3, "trigger": "cli"})
	if err := store.RecordServiceRun(ServiceRun{
		Service: "sync", RunID: "sync-a", Status: "ok", StartedAt: "2026-08-01T00:00:00Z", Details: details,
	}); err != nil {
		t.Fatalf("record first: %v", err)
	}
	if err := store.RecordServiceRun(ServiceRun{
		Service: "sync", RunID: "sync-b", Status: "error", ExitCode: 1, StartedAt: "2026-08-02T00:00:00Z",
	}); err != nil {
		t.Fatalf("record second: %v", err)
	}
	if err := store.RecordServiceRun(ServiceRun{
		Service: "maintain", RunID: "mnt-1", Status: "ok", StartedAt: "2026-08-03T00:00:00Z",
	}); err != nil {
		t.Fatalf("record maintain: %v", err)
	}

	latest, err := store.LatestServiceRun("sync")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest == nil || latest.RunID != "sync-b" || latest.ExitCode != 1 {
		t.Fatalf("latest sync run wrong: %+v", latest)
	}

	first, err := store.LatestServiceRun("maintain")
	if err != nil {
		t.Fatalf("latest maintain: %v", err)
	}
	if first == nil || first.RunID != "mnt-1" {
		t.Fatalf("maintain run wrong: %+v", first)
	}
}

func TestListSessionsWindowOrderingAndPaging(t *testing.T) {
	store := openTestStore(t)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	ids := []string{"run-a", "run-b", "run-c", "run-d"}
	for i, id := range ids {
		doc := sampleDoc(id, base.Add(time.Duration(i)*time.Hour))
		if i == 3 {
			doc.AgentType = "codex"
		}
		if _, err := store.IndexSessionForFTS(doc); err != nil {
			t.Fatalf("index %s: %v", id, err)
		}
	}

	docs, total, err := store.ListSessionsWindow(2, 0, nil, nil, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 4 || len(docs) != 2 {
		t.Fatalf("paging wrong: total=%d page=%d", total, len(docs))
	}
	if docs[0].RunID != "run-d" || docs[1].RunID != "run-c" {
		t.Fatalf("order not newest-first: %s %s", docs[0].RunID, docs[1].RunID)
	}

	docs, total, err = store.ListSessionsWindow(10, 0, []string{"codex"}, nil, nil)
	if err != nil {
		t.Fatalf("filtered list: %v", err)
	}
	if total != 1 || len(docs) != 1 || docs[0].RunID != "run-d" {
		t.Fatalf("agent filter wrong: total=%d docs=%+v", total, docs)
	}

	since := base.Add(90 * time.Minute)
	until := base.Add(150 * time.Minute)
	docs, total, err = store.ListSessionsWindow(10, 0, nil, &since, &until)
	if err != nil {
		t.Fatalf("windowed list: %v", err)
	}
	if total != 1 || docs[0].RunID != "run-c" {
		t.Fatalf("window filter wrong: total=%d docs=%+v", total, docs)
	}
}

func TestSearchSnippetAndFilters(t *testing.T) {
	store := openTestStore(t)
	docA := sampleDoc("run-a", time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	docA.Content = "investigate the flaky uploader retry loop"
	docB := sampleDoc("run-b", time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC))
	docB.AgentType = "codex"
	docB.RepoName = "pipeline"
	docB.Content = "tune the uploader batch size"
	for _, doc := range []SessionDoc{docA, docB} {
		if _, err := store.IndexSessionForFTS(doc); err != nil {
			t.Fatalf("index: %v", err)
		}
	}

	hits, err := store.Search("uploader", SearchFilters{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if !strings.Contains(hits[0].Snippet, "<mark>uploader</mark>") {
		t.Fatalf("snippet not highlighted: %q", hits[0].Snippet)
	}

	hits, err = store.Search("uploader", SearchFilters{AgentTypes: []string{"codex"}, Repo: "pipe"})
	if err != nil {
		t.Fatalf("filtered search: %v", err)
	}
	if len(hits) != 1 || hits[0].RunID != "run-b" {
		t.Fatalf("filters wrong: %+v", hits)
	}

	hits, err = store.Search("   ", SearchFilters{})
	if err != nil || hits != nil {
		t.Fatalf("blank query should return nothing: %v %v", hits, err)
	}

	hits, err = store.Search("nonexistentterm", SearchFilters{})
	if err != nil {
		t.Fatalf("miss search: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected no hits, got %d", len(hits))
	}
}
