// File path: internal/adapters/codex.go

package adapters

import (
	"bufio"
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

// CodexAdapter reads Codex CLI rollout transcripts: JSONL files nested in
// date directories under ~/.codex/sessions.
type CodexAdapter struct{}

func NewCodexAdapter() *CodexAdapter { return &CodexAdapter{} }

func (a *CodexAdapter) Name() string { return "codex" }

func (a *CodexAdapter) DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".codex", "sessions")
}

func codexSessionFiles(root string) []string {
	var files []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".jsonl") {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files
}

type codexLine struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	Payload   struct {
		ID        string `json:"id"`
		CWD       string `json:"cwd"`
		Type      string `json:"type"`
		Role      string `json:"role"`
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
		Output    string `json:"output"`
		Content   []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"payload"`
}

func scanCodexFile(path string, visit func(codexLine)) bool {
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
		var line codexLine
		if err := json.Unmarshal(raw, &line); err != nil {
			continue
		}
		visit(line)
	}
	return scanner.Err() == nil
}

func codexText(line codexLine) string {
	var parts []string
	for _, block := range line.Payload.Content {
		if (block.Type == "input_text" || block.Type == "output_text") && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func (a *CodexAdapter) CountSessions(root string) int {
	return len(codexSessionFiles(root))
}

func (a *CodexAdapter) FindSessionPath(sessionID, root string) string {
	for _, file := range codexSessionFiles(root) {
		if strings.Contains(filepath.Base(file), sessionID) {
			return file
		}
	}
	for _, file := range codexSessionFiles(root) {
		found := false
		scanCodexFile(file, func(line codexLine) {
			if line.Type == "session_meta" && line.Payload.ID == sessionID {
				found = true
			}
		})
		if found {
			return file
		}
	}
	return ""
}

func (a *CodexAdapter) ReadSession(path, sessionID string) *ViewerSession {
	session := &ViewerSession{RunID: sessionID, AgentType: a.Name(), Path: path}
	ok := scanCodexFile(path, func(line codexLine) {
		var ts *time.Time
		if parsed, okTS := timeutil.ParseTimestamp(line.Timestamp); okTS {
			ts = &parsed
		}
		switch line.Type {
		case "session_meta":
			if line.Payload.ID != "" {
				session.RunID = line.Payload.ID
			}
			if line.Payload.CWD != "" {
				session.CWD = line.Payload.CWD
				session.RepoName = repoNameFromPath(line.Payload.CWD)
			}
		case "response_item":
			switch line.Payload.Type {
			case "message":
				text := codexText(line)
				if text == "" {
					return
				}
				session.Messages = append(session.Messages, ViewerMessage{
					Role: canonicalRole(line.Payload.Role), Text: text, Timestamp: ts,
				})
			case "function_call":
				session.Messages = append(session.Messages, ViewerMessage{
					Role: "tool", ToolName: line.Payload.Name, ToolInput: line.Payload.Arguments, Timestamp: ts,
				})
			case "function_call_output":
				session.Messages = append(session.Messages, ViewerMessage{
					Role: "tool", ToolOut: line.Payload.Output, Timestamp: ts,
				})
			}
		}
	})
	if !ok && len(session.Messages) == 0 {
		common.Logger().Warn("codex transcript unreadable", "path", path)
		return nil
	}
	return session
}

func (a *CodexAdapter) IterSessions(root string, start, end *time.Time, known map[string]struct{}) []SessionRecord {
	var records []SessionRecord
	for _, file := range codexSessionFiles(root) {
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

func (a *CodexAdapter) buildRecord(file string) SessionRecord {
	record := SessionRecord{
		AgentType:   a.Name(),
		SessionPath: file,
		RunID:       strings.TrimSuffix(filepath.Base(file), ".jsonl"),
	}
	var earliest, latest *time.Time
	scanCodexFile(file, func(line codexLine) {
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
		switch line.Type {
		case "session_meta":
			if line.Payload.ID != "" {
				record.RunID = line.Payload.ID
			}
			if record.RepoName == "" && line.Payload.CWD != "" {
				record.RepoName = repoNameFromPath(line.Payload.CWD)
			}
		case "response_item":
			switch line.Payload.Type {
			case "message":
				text := codexText(line)
				if text == "" {
					return
				}
				record.MessageCount++
				if canonicalRole(line.Payload.Role) == "user" {
					record.Summaries = appendSummary(record.Summaries, text)
				}
			case "function_call":
				record.ToolCallCount++
			}
		}
	})
	record.StartTime = earliest
	if earliest != nil && latest != nil {
		record.DurationMS = latest.Sub(*earliest).Milliseconds()
	}
	return record
}
