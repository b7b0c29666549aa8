// File path: internal/adapters/registry.go

package adapters

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// knownPlatforms lists every platform an adapter exists for.
var knownPlatforms = []string{"claude", "codex", "cursor", "opencode"}

// New returns the adapter for a known platform name.
func New(name string) (Adapter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "claude":
		return NewClaudeAdapter(), nil
	case "codex":
		return NewCodexAdapter(), nil
	case "cursor":
		return NewCursorAdapter(), nil
	case "opencode":
		return NewOpenCodeAdapter(), nil
	default:
		return nil, fmt.Errorf("unknown platform %q (known: %s)", name, strings.Join(knownPlatforms, ", "))
	}
}

// KnownPlatforms returns the supported platform names, sorted.
func KnownPlatforms() []string {
	out := make([]string, len(knownPlatforms))
	copy(out, knownPlatforms)
	return out
}

// PlatformEntry is one connected platform in the registry file.
type PlatformEntry struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	ConnectedAt string `json:"connected_at"`
}

// Registry persists which platforms are connected and where their storage
// lives, as a small JSON document.
type Registry struct {
	path string
	mu   sync.Mutex
}

func NewRegistry(path string) *Registry {
	return &Registry{path: path}
}

type registryFile struct {
	Platforms map[string]PlatformEntry `json:"platforms"`
}

func (r *Registry) load() (registryFile, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return registryFile{Platforms: map[string]PlatformEntry{}}, nil
		}
		return registryFile{}, fmt.Errorf("read platform registry: %w", err)
	}
	var file registryFile
	if err := json.Unmarshal(data, &file); err != nil {
		return registryFile{}, fmt.Errorf("parse platform registry %s: %w", r.path, err)
	}
	if file.Platforms == nil {
		file.Platforms = map[string]PlatformEntry{}
	}
	return file, nil
}

func (r *Registry) save(file registryFile) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create registry dir: %w", err)
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("encode platform registry: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write platform registry: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace platform registry: %w", err)
	}
	return nil
}

// Connect registers a platform. An empty path falls back to the adapter's
// default root, which must exist on disk.
func (r *Registry) Connect(name, path string) (PlatformEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	adapter, err := New(name)
	if err != nil {
		return PlatformEntry{}, err
	}
	if strings.TrimSpace(path) == "" {
		path = adapter.DefaultPath()
	}
	if strings.TrimSpace(path) == "" {
		return PlatformEntry{}, fmt.Errorf("platform %s has no default storage path; pass one explicitly", adapter.Name())
	}
	if _, err := os.Stat(path); err != nil {
		return PlatformEntry{}, fmt.Errorf("platform storage path %s: %w", path, err)
	}
	file, err := r.load()
	if err != nil {
		return PlatformEntry{}, err
	}
	entry := PlatformEntry{
		Name:        adapter.Name(),
		Path:        path,
		ConnectedAt: time.Now().UTC().Format(time.RFC3339),
	}
	file.Platforms[adapter.Name()] = entry
	if err := r.save(file); err != nil {
		return PlatformEntry{}, err
	}
	return entry, nil
}

// AutoConnect registers every known platform whose default storage root
// exists, returning the entries it added.
func (r *Registry) AutoConnect() ([]PlatformEntry, error) {
	var added []PlatformEntry
	for _, name := range knownPlatforms {
		adapter, err := New(name)
		if err != nil {
			continue
		}
		root := adapter.DefaultPath()
		if root == "" {
			continue
		}
		if _, err := os.Stat(root); err != nil {
			continue
		}
		entry, err := r.Connect(name, root)
		if err != nil {
			return added, err
		}
		added = append(added, entry)
	}
	return added, nil
}

// Remove disconnects a platform. Removing an unconnected platform is not
// an error.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	file, err := r.load()
	if err != nil {
		return err
	}
	delete(file.Platforms, strings.ToLower(strings.TrimSpace(name)))
	return r.save(file)
}

// List returns the connected platforms sorted by name.
func (r *Registry) List() ([]PlatformEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	file, err := r.load()
	if err != nil {
		return nil, err
	}
	entries := make([]PlatformEntry, 0, len(file.Platforms))
	for _, entry := range file.Platforms {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// ConnectedAgent pairs a registry entry with its adapter.
type ConnectedAgent struct {
	Entry   PlatformEntry
	Adapter Adapter
}

// ConnectedAgents resolves adapters for every connected platform. Filter
// narrows to the named platforms when non-empty.
func (r *Registry) ConnectedAgents(filter []string) ([]ConnectedAgent, error) {
	entries, err := r.List()
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]struct{}, len(filter))
	for _, name := range filter {
		wanted[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}
	var agents []ConnectedAgent
	for _, entry := range entries {
		if len(wanted) > 0 {
			if _, ok := wanted[entry.Name]; !ok {
				continue
			}
		}
		adapter, err := New(entry.Name)
		if err != nil {
			continue
		}
		agents = append(agents, ConnectedAgent{Entry: entry, Adapter: adapter})
	}
	return agents, nil
}
