// File path: internal/adapters/claude.go

package adapters

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/recollect-dev/recollect/internal/common"
	"github.com/recollect-dev/recollect/internal/timeutil"
)

// Transcript lines can carry large embedded file contents.
const claudeScanBufferSize = 4 * 1024 * 1024

// ClaudeAdapter reads Claude Code transcripts: one JSONL file per session
// under a per-project directory inside ~/.claude/projects.
type ClaudeAdapter struct{}

func NewClaudeAdapter() *ClaudeAdapter { return &ClaudeAdapter{} }

func (a *ClaudeAdapter) Name() string { return "claude" }

func (a *ClaudeAdapter) DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".claude", "projects")
}

// claudeSessionFiles lists the session transcripts directly inside each
// project directory under root. Deeper nesting is not scanned.
func claudeSessionFiles(root string) []string {
	projects, err := os.ReadDir(root)
	if err != nil {
		return nil
	}
	var files []string
	for _, project := range projects {
		if !project.IsDir() {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(root, project.Name()))
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
				continue
			}
			files = append(files, filepath.Join(root, project.Name(), entry.Name()))
		}
	}
	sort.Strings(files)
	return files
}

type claudeLine struct {
	SessionID string `json:"sessionId"`
	CWD       string `json:"cwd"`
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	Message   struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

type claudeContentBlock struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	Name    string `json:"name"`
	Input   any    `json:"input"`
	Content any    `json:"content"`
}

func scanClaudeFile(path string, visit func(claudeLine)) bool {
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	defer file.Close()
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), claudeScanBufferSize)
	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var line claudeLine
		if err := json.Unmarshal(raw, &line); err != nil {
			continue
		}
		visit(line)
	}
	return scanner.Err() == nil
}

func (a *ClaudeAdapter) CountSessions(root string) int {
	return len(claudeSessionFiles(root))
}

// FindSessionPath resolves by filename first, then by the sessionId field
// of the first parseable line.
func (a *ClaudeAdapter) FindSessionPath(sessionID, root string) string {
	for _, file := range claudeSessionFiles(root) {
		if strings.TrimSuffix(filepath.Base(file), ".jsonl") == sessionID {
			return file
		}
	}
	for _, file := range claudeSessionFiles(root) {
		found := false
		scanClaudeFile(file, func(line claudeLine) {
			if line.SessionID == sessionID {
				found = true
			}
		})
		if found {
			return file
		}
	}
	return ""
}

// claudeBlocks decodes a message content field, which is either a plain
// string or an array of typed blocks.
func claudeBlocks(content json.RawMessage) []claudeContentBlock {
	if len(content) == 0 {
		return nil
	}
	var text string
	if err := json.Unmarshal(content, &text); err == nil {
		return []claudeContentBlock{{Type: "text", Text: text}}
	}
	var blocks []claudeContentBlock
	if err := json.Unmarshal(content, &blocks); err != nil {
		return nil
	}
	return blocks
}

func (a *ClaudeAdapter) ReadSession(path, sessionID string) *ViewerSession {
	session := &ViewerSession{RunID: sessionID, AgentType: a.Name(), Path: path}
	ok := scanClaudeFile(path, func(line claudeLine) {
		if line.Type != "user" && line.Type != "assistant" {
			return
		}
		if session.RunID == "" && line.SessionID != "" {
			session.RunID = line.SessionID
		}
		if session.CWD == "" && line.CWD != "" {
			session.CWD = line.CWD
			session.RepoName = repoNameFromPath(line.CWD)
		}
		var ts *time.Time
		if parsed, okTS := timeutil.ParseTimestamp(line.Timestamp); okTS {
			ts = &parsed
		}
		role := line.Message.Role
		if role == "" {
			role = line.Type
		}
		role = canonicalRole(role)
		var texts []string
		for _, block := range claudeBlocks(line.Message.Content) {
			switch block.Type {
			case "text":
				if block.Text != "" {
					texts = append(texts, block.Text)
				}
			case "tool_use":
				tool := ViewerMessage{Role: "tool", ToolName: block.Name, Timestamp: ts}
				if block.Input != nil {
					if encoded, err := json.Marshal(block.Input); err == nil {
						tool.ToolInput = string(encoded)
					}
				}
				session.Messages = append(session.Messages, tool)
			case "tool_result":
				session.Messages = append(session.Messages, ViewerMessage{
					Role: "tool", ToolOut: extractText(block.Content), Timestamp: ts,
				})
			}
		}
		if len(texts) > 0 {
			session.Messages = append(session.Messages, ViewerMessage{
				Role: role, Text: strings.Join(texts, "\n"), Timestamp: ts,
			})
		}
	})
	if !ok && len(session.Messages) == 0 {
		common.Logger().Warn("claude transcript unreadable", "path", path)
		return nil
	}
	return session
}

func (a *ClaudeAdapter) IterSessions(root string, start, end *time.Time, known map[string]struct{}) []SessionRecord {
	var records []SessionRecord
	for _, file := range claudeSessionFiles(root) {
		record := a.buildRecord(file)
		if record.RunID == "" {
			continue
		}
		if _, indexed := known[record.RunID]; indexed {
			continue
		}
		if !recordInWindow(record, start, end) {
			continue
		}
		records = append(records, record)
	}
	return records
}

func (a *ClaudeAdapter) buildRecord(file string) SessionRecord {
	record := SessionRecord{
		AgentType:   a.Name(),
		SessionPath: file,
		RunID:       strings.TrimSuffix(filepath.Base(file), ".jsonl"),
	}
	var earliest, latest *time.Time
	scanClaudeFile(file, func(line claudeLine) {
		if line.Type != "user" && line.Type != "assistant" {
			return
		}
		if line.SessionID != "" {
			record.RunID = line.SessionID
		}
		if record.RepoName == "" && line.CWD != "" {
			record.RepoName = repoNameFromPath(line.CWD)
		}
		if ts, ok := timeutil.ParseTimestamp(line.Timestamp); ok {
			if earliest == nil || ts.Before(*earliest) {
				t := ts
				earliest = &t
			}
			if latest == nil || ts.After(*latest) {
				t := ts
				latest = &t
			}
		}
		hadText := false
		for _, block := range claudeBlocks(line.Message.Content) {
			switch block.Type {
			case "text":
				if block.Text != "" {
					hadText = true
					if line.Type == "user" {
						record.Summaries = appendSummary(record.Summaries, block.Text)
					}
				}
			case "tool_use", "tool_result":
				record.ToolCallCount++
			}
		}
		if hadText {
			record.MessageCount++
		}
	})
	record.StartTime = earliest
	if earliest != nil && latest != nil {
		record.DurationMS = latest.Sub(*earliest).Milliseconds()
	}
	return record
}
