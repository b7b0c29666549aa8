// File path: internal/adapters/registry_test.go

package adapters

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRegistryConnectListRemove(t *testing.T) {
	dir := t.TempDir()
	storage := filepath.Join(dir, "claude-projects")
	if err := os.MkdirAll(storage, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	reg := NewRegistry(filepath.Join(dir, "platforms.json"))

	entry, err := reg.Connect("claude", storage)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if entry.Name != "claude" || entry.Path != storage || entry.ConnectedAt == "" {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	entries, err := reg.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "claude" {
		t.Fatalf("unexpected list: %+v", entries)
	}

	if err := reg.Remove("claude"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	entries, err = reg.List()
	if err != nil {
		t.Fatalf("list after remove: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty registry, got %+v", entries)
	}
	// Removing again is a no-op, not an error.
	if err := reg.Remove("claude"); err != nil {
		t.Fatalf("second remove: %v", err)
	}
}

func TestRegistryConnectRejectsUnknownPlatform(t *testing.T) {
	reg := NewRegistry(filepath.Join(t.TempDir(), "platforms.json"))
	if _, err := reg.Connect("copilot", t.TempDir()); err == nil {
		t.Fatal("expected unknown platform error")
	}
}

func TestRegistryConnectRejectsMissingPath(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry(filepath.Join(dir, "platforms.json"))
	if _, err := reg.Connect("claude", filepath.Join(dir, "absent")); err == nil {
		t.Fatal("expected missing path error")
	}
}

func TestRegistryPersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	storage := filepath.Join(dir, "sessions")
	if err := os.MkdirAll(storage, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, "platforms.json")
	if _, err := NewRegistry(path).Connect("codex", storage); err != nil {
		t.Fatalf("connect: %v", err)
	}
	entries, err := NewRegistry(path).List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "codex" || entries[0].Path != storage {
		t.Fatalf("registry not persisted: %+v", entries)
	}
}

func TestRegistryConnectedAgentsFilter(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry(filepath.Join(dir, "platforms.json"))
	for _, name := range []string{"claude", "codex"} {
		storage := filepath.Join(dir, name)
		if err := os.MkdirAll(storage, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if _, err := reg.Connect(name, storage); err != nil {
			t.Fatalf("connect %s: %v", name, err)
		}
	}
	all, err := reg.ConnectedAgents(nil)
	if err != nil {
		t.Fatalf("connected agents: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 agents, got %d", len(all))
	}
	only, err := reg.ConnectedAgents([]string{"codex"})
	if err != nil {
		t.Fatalf("filtered agents: %v", err)
	}
	if len(only) != 1 || only[0].Adapter.Name() != "codex" {
		t.Fatalf("filter failed: %+v", only)
	}
}

func TestNewAdapterFactory(t *testing.T) {
	for _, name := range KnownPlatforms() {
		adapter, err := New(name)
		if err != nil {
			t.Fatalf("factory failed for %s: %v", name, err)
		}
		if adapter.Name() != name {
			t.Fatalf("adapter name mismatch: %s vs %s", adapter.Name(), name)
		}
	}
	if _, err := New("unknown"); err == nil {
		t.Fatal("expected error for unknown platform")
	}
}
