// File path: internal/adapters/opencode.go

package adapters

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/recollect-dev/recollect/internal/common"
	"github.com/recollect-dev/recollect/internal/timeutil"
)

// OpenCodeAdapter reads sessions from OpenCode's storage tree: one JSON
// document per session under session/, per-message documents under
// message/<session-id>/, and message bodies split into typed parts under
// part/.
type OpenCodeAdapter struct{}

func NewOpenCodeAdapter() *OpenCodeAdapter { return &OpenCodeAdapter{} }

func (a *OpenCodeAdapter) Name() string { return "opencode" }

func (a *OpenCodeAdapter) DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "opencode")
}

// storageRoots resolves the storage directories that hold a session/
// subtree. An explicit root is probed directly and at root/storage; the
// default base additionally covers per-project and global storage layouts.
func (a *OpenCodeAdapter) storageRoots(root string) []string {
	var candidates []string
	if strings.TrimSpace(root) != "" {
		candidates = []string{root, filepath.Join(root, "storage")}
	} else {
		base := a.DefaultPath()
		if base == "" {
			return nil
		}
		candidates = []string{base, filepath.Join(base, "storage"), filepath.Join(base, "global", "storage")}
		projects, _ := filepath.Glob(filepath.Join(base, "project", "*", "storage"))
		candidates = append(candidates, projects...)
	}
	var roots []string
	for _, candidate := range candidates {
		if info, err := os.Stat(filepath.Join(candidate, "session")); err == nil && info.IsDir() {
			roots = append(roots, candidate)
		}
	}
	return roots
}

func sessionFiles(storageRoot string) []string {
	var files []string
	_ = filepath.WalkDir(filepath.Join(storageRoot, "session"), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".json") {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files
}

func readJSONFile(path string, target any) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, target) == nil
}

type opencodeSession struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Directory string `json:"directory"`
	Version   string `json:"version"`
	Time      struct {
		Created float64 `json:"created"`
		Updated float64 `json:"updated"`
	} `json:"time"`
}

type opencodeMessage struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	Time struct {
		Created   float64 `json:"created"`
		Completed float64 `json:"completed"`
	} `json:"time"`
	Tokens struct {
		Input     float64 `json:"input"`
		Output    float64 `json:"output"`
		Reasoning float64 `json:"reasoning"`
	} `json:"tokens"`
}

type opencodePart struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Tool  string `json:"tool"`
	State struct {
		Input  any    `json:"input"`
		Output string `json:"output"`
		Time   struct {
			Start float64 `json:"start"`
		} `json:"time"`
	} `json:"state"`
}

func sessionIDFromFile(path string, payload opencodeSession) string {
	if strings.TrimSpace(payload.ID) != "" {
		return payload.ID
	}
	return strings.TrimSuffix(filepath.Base(path), ".json")
}

func (a *OpenCodeAdapter) CountSessions(root string) int {
	total := 0
	for _, storageRoot := range a.storageRoots(root) {
		total += len(sessionFiles(storageRoot))
	}
	return total
}

func (a *OpenCodeAdapter) FindSessionPath(sessionID, root string) string {
	for _, storageRoot := range a.storageRoots(root) {
		for _, file := range sessionFiles(storageRoot) {
			var payload opencodeSession
			if !readJSONFile(file, &payload) {
				continue
			}
			if sessionIDFromFile(file, payload) == sessionID {
				return file
			}
		}
	}
	return ""
}

// storageRootOf walks up from a session file to the directory that holds
// the session/ subtree.
func storageRootOf(sessionFile string) string {
	dir := filepath.Dir(sessionFile)
	for dir != "" {
		if filepath.Base(dir) == "session" {
			return filepath.Dir(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
	return ""
}

func loadMessages(storageRoot, sessionID string) []opencodeMessage {
	pattern := filepath.Join(storageRoot, "message", sessionID, "*.json")
	files, _ := filepath.Glob(pattern)
	var messages []opencodeMessage
	for _, file := range files {
		var msg opencodeMessage
		if !readJSONFile(file, &msg) {
			continue
		}
		if msg.ID == "" {
			msg.ID = strings.TrimSuffix(filepath.Base(file), ".json")
		}
		messages = append(messages, msg)
	}
	sort.Slice(messages, func(i, j int) bool {
		return messages[i].Time.Created < messages[j].Time.Created
	})
	return messages
}

func loadParts(storageRoot, sessionID, messageID string) []opencodePart {
	patterns := []string{
		filepath.Join(storageRoot, "part", messageID, "*.json"),
		filepath.Join(storageRoot, "part", sessionID, messageID, "*.json"),
	}
	var parts []opencodePart
	for _, pattern := range patterns {
		files, _ := filepath.Glob(pattern)
		sort.Strings(files)
		for _, file := range files {
			var part opencodePart
			if readJSONFile(file, &part) {
				parts = append(parts, part)
			}
		}
		if len(parts) > 0 {
			break
		}
	}
	return parts
}

func (a *OpenCodeAdapter) ReadSession(path, sessionID string) *ViewerSession {
	var payload opencodeSession
	if !readJSONFile(path, &payload) {
		common.Logger().Warn("opencode session unreadable", "path", path)
		return nil
	}
	runID := sessionIDFromFile(path, payload)
	storageRoot := storageRootOf(path)
	session := &ViewerSession{
		RunID:     runID,
		AgentType: a.Name(),
		CWD:       payload.Directory,
		RepoName:  repoNameFromPath(payload.Directory),
		Path:      path,
	}
	if payload.Version != "" {
		session.Meta = map[string]any{"version": payload.Version}
	}
	if storageRoot == "" {
		return session
	}
	for _, msg := range loadMessages(storageRoot, runID) {
		session.TotalInputTokens += int64(msg.Tokens.Input)
		session.TotalOutputTokens += int64(msg.Tokens.Output + msg.Tokens.Reasoning)
		parts := loadParts(storageRoot, runID, msg.ID)
		var texts []string
		for _, part := range parts {
			switch part.Type {
			case "text":
				if part.Text != "" {
					texts = append(texts, part.Text)
				}
			case "tool":
				tool := ViewerMessage{Role: "tool", ToolName: part.Tool, ToolOut: part.State.Output}
				if part.State.Input != nil {
					if encoded, err := json.Marshal(part.State.Input); err == nil {
						tool.ToolInput = string(encoded)
					}
				}
				if ts, ok := timeutil.ParseTimestamp(part.State.Time.Start); ok {
					tool.Timestamp = &ts
				}
				session.Messages = append(session.Messages, tool)
			}
		}
		viewer := ViewerMessage{Role: canonicalRole(msg.Role), Text: strings.Join(texts, "\n")}
		if ts, ok := timeutil.ParseTimestamp(msg.Time.Created); ok {
			viewer.Timestamp = &ts
		}
		if viewer.Text != "" {
			session.Messages = append(session.Messages, viewer)
		}
	}
	return session
}

func (a *OpenCodeAdapter) IterSessions(root string, start, end *time.Time, known map[string]struct{}) []SessionRecord {
	var records []SessionRecord
	seen := make(map[string]struct{})
	for _, storageRoot := range a.storageRoots(root) {
		for _, file := range sessionFiles(storageRoot) {
			var payload opencodeSession
			if !readJSONFile(file, &payload) {
				continue
			}
			runID := sessionIDFromFile(file, payload)
			if _, dup := seen[runID]; dup {
				continue
			}
			seen[runID] = struct{}{}
			if _, indexed := known[runID]; indexed {
				continue
			}
			record := a.buildRecord(file, storageRoot, runID, payload)
			if !recordInWindow(record, start, end) {
				continue
			}
			records = append(records, record)
		}
	}
	return records
}

func (a *OpenCodeAdapter) buildRecord(file, storageRoot, runID string, payload opencodeSession) SessionRecord {
	record := SessionRecord{
		RunID:       runID,
		AgentType:   a.Name(),
		SessionPath: file,
		RepoName:    repoNameFromPath(payload.Directory),
	}
	if ts, ok := timeutil.ParseTimestamp(payload.Time.Created); ok {
		record.StartTime = &ts
	}
	if payload.Title != "" {
		record.Summaries = appendSummary(record.Summaries, payload.Title)
	}
	messages := loadMessages(storageRoot, runID)
	var lastCompleted float64
	for _, msg := range messages {
		record.MessageCount++
		record.TotalTokens += int64(msg.Tokens.Input + msg.Tokens.Output + msg.Tokens.Reasoning)
		if msg.Time.Completed > lastCompleted {
			lastCompleted = msg.Time.Completed
		}
		for _, part := range loadParts(storageRoot, runID, msg.ID) {
			if part.Type == "tool" {
				record.ToolCallCount++
			} else if part.Type == "text" && canonicalRole(msg.Role) == "user" {
				record.Summaries = appendSummary(record.Summaries, part.Text)
			}
		}
	}
	if record.StartTime != nil && lastCompleted > 0 {
		if endTS, ok := timeutil.ParseTimestamp(lastCompleted); ok && endTS.After(*record.StartTime) {
			record.DurationMS = endTS.Sub(*record.StartTime).Milliseconds()
		}
	}
	return record
}
