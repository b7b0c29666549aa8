// File path: internal/adapters/codex_test.go

package adapters

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func codexFixture(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	day := filepath.Join(root, "2023", "11", "14")
	if err := os.MkdirAll(day, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	lines := []string{
		`{"type":"session_meta","timestamp":"2023-11-14T22:13:20Z","payload":{"id":"rollout-7","cwd":"/home/dev/projects/pipeline"}}`,
		`{"type":"response_item","timestamp":"2023-11-14T22:13:22Z","payload":{"type":"message","role":"user","content":[{"type":"input_text","text":"profile the slow query"}]}}`,
		`{"type":"response_item","timestamp":"2023-11-14T22:13:40Z","payload":{"type":"function_call","name":"shell","arguments":"{\"cmd\":\"EXPLAIN ANALYZE\"}"}}`,
		`{"type":"response_item","timestamp":"2023-11-14T22:13:41Z","payload":{"type":"function_call_output","output":"Seq Scan on orders"}}`,
		`{"type":"response_item","timestamp":"2023-11-14T22:13:50Z","payload":{"type":"message","role":"assistant","content":[{"type":"output_text","text":"the orders table is missing an index"}]}}`,
		`{"type":"turn_context","payload":{}}`,
	}
	path := filepath.Join(day, "rollout-7.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}
	return root, path
}

func TestCodexCountAndFind(t *testing.T) {
	root, path := codexFixture(t)
	adapter := NewCodexAdapter()
	if got := adapter.CountSessions(root); got != 1 {
		t.Fatalf("expected 1 session, got %d", got)
	}
	if got := adapter.FindSessionPath("rollout-7", root); got != path {
		t.Fatalf("find failed: %s", got)
	}
	if got := adapter.FindSessionPath("nope", root); got != "" {
		t.Fatalf("unknown id should be empty, got %s", got)
	}
	if got := adapter.CountSessions(filepath.Join(root, "missing")); got != 0 {
		t.Fatalf("missing root should count 0, got %d", got)
	}
}

func TestCodexReadSession(t *testing.T) {
	_, path := codexFixture(t)
	session := NewCodexAdapter().ReadSession(path, "rollout-7")
	if session == nil {
		t.Fatal("expected session")
	}
	if session.RunID != "rollout-7" || session.RepoName != "pipeline" {
		t.Fatalf("identity wrong: %+v", session)
	}
	if session.CWD != "/home/dev/projects/pipeline" {
		t.Fatalf("cwd not carried from session_meta: %s", session.CWD)
	}
	want := []string{"user", "tool", "tool", "assistant"}
	if len(session.Messages) != len(want) {
		t.Fatalf("unexpected message count: %d", len(session.Messages))
	}
	for i, msg := range session.Messages {
		if msg.Role != want[i] {
			t.Fatalf("message %d role %s, want %s", i, msg.Role, want[i])
		}
	}
	if session.Messages[1].ToolName != "shell" || session.Messages[1].ToolInput == "" {
		t.Fatalf("function_call not captured: %+v", session.Messages[1])
	}
	if session.Messages[2].ToolOut != "Seq Scan on orders" {
		t.Fatalf("function_call_output not captured: %+v", session.Messages[2])
	}
}

func TestCodexIterSessions(t *testing.T) {
	root, path := codexFixture(t)
	adapter := NewCodexAdapter()
	records := adapter.IterSessions(root, nil, nil, nil)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.RunID != "rollout-7" || rec.SessionPath != path || rec.RepoName != "pipeline" {
		t.Fatalf("identity wrong: %+v", rec)
	}
	if rec.MessageCount != 2 || rec.ToolCallCount != 1 {
		t.Fatalf("unexpected counts: %+v", rec)
	}
	if rec.StartTime == nil || !rec.StartTime.Equal(time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)) {
		t.Fatalf("start time wrong: %+v", rec.StartTime)
	}
	if rec.DurationMS != 30000 {
		t.Fatalf("duration wrong: %d", rec.DurationMS)
	}
	if len(rec.Summaries) != 1 || rec.Summaries[0] != "profile the slow query" {
		t.Fatalf("summaries wrong: %v", rec.Summaries)
	}

	known := map[string]struct{}{"rollout-7": {}}
	if got := adapter.IterSessions(root, nil, nil, known); len(got) != 0 {
		t.Fatalf("known run must be excluded, got %d", len(got))
	}
	until := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := adapter.IterSessions(root, nil, &until, nil); len(got) != 0 {
		t.Fatalf("window should exclude newer session, got %d", len(got))
	}
}
