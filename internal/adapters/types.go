// File path: internal/adapters/types.go

// Package adapters reads coding-agent session transcripts from the on-disk
// stores of the supported platforms and normalizes them into a common
// viewer model. Adapters never mutate platform storage.
package adapters

import (
	"time"
	"unicode/utf8"
)

// SessionRecord is the discovery-time summary of one session, produced by
// IterSessions. It carries enough for catalog indexing without holding the
// full transcript in memory.
type SessionRecord struct {
	RunID         string
	AgentType     string
	SessionPath   string
	RepoName      string
	StartTime     *time.Time
	DurationMS    int64
	MessageCount  int
	ToolCallCount int
	TotalTokens   int64
	Summaries     []string
}

// ViewerMessage is one normalized transcript entry.
type ViewerMessage struct {
	Role      string     `json:"role"`
	Text      string     `json:"text"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	ToolName  string     `json:"tool_name,omitempty"`
	ToolInput string     `json:"tool_input,omitempty"`
	ToolOut   string     `json:"tool_output,omitempty"`
}

// ViewerSession is a full normalized transcript for the dashboard viewer
// and the extraction pipeline.
type ViewerSession struct {
	RunID             string          `json:"run_id"`
	AgentType         string          `json:"agent_type"`
	CWD               string          `json:"cwd,omitempty"`
	RepoName          string          `json:"repo_name,omitempty"`
	Path              string          `json:"path"`
	Messages          []ViewerMessage `json:"messages"`
	TotalInputTokens  int64           `json:"total_input_tokens,omitempty"`
	TotalOutputTokens int64           `json:"total_output_tokens,omitempty"`
	Meta              map[string]any  `json:"meta,omitempty"`
}

// Adapter reads sessions from one platform's storage layout.
type Adapter interface {
	// Name returns the canonical platform name ("claude", "cursor", ...).
	Name() string
	// DefaultPath returns the conventional storage root, empty when the
	// platform has no stable default on this OS.
	DefaultPath() string
	// CountSessions reports how many sessions exist under root. A missing
	// or unreadable root counts as zero.
	CountSessions(root string) int
	// FindSessionPath locates the backing file for a session id, empty
	// when not found.
	FindSessionPath(sessionID, root string) string
	// ReadSession loads the full transcript behind path. Returns nil when
	// the source is missing or unreadable.
	ReadSession(path, sessionID string) *ViewerSession
	// IterSessions enumerates sessions under root whose start time falls
	// inside [start, end], skipping run ids present in known. Sessions
	// with no recoverable timestamp are included only when both bounds
	// are nil.
	IterSessions(root string, start, end *time.Time, known map[string]struct{}) []SessionRecord
}

const (
	summaryMaxLen   = 140
	summariesPerRun = 5
)

// appendSummary adds a truncated preview of text to summaries, capped at
// summariesPerRun entries. Only short previews ever leave the adapter.
func appendSummary(summaries []string, text string) []string {
	if len(summaries) >= summariesPerRun {
		return summaries
	}
	trimmed := truncateRunes(firstLine(text), summaryMaxLen)
	if trimmed == "" {
		return summaries
	}
	return append(summaries, trimmed)
}

// truncateRunes cuts text to at most limit bytes without splitting a rune.
func truncateRunes(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

func firstLine(text string) string {
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			text = text[:i]
			break
		}
	}
	for len(text) > 0 && (text[0] == ' ' || text[0] == '\t' || text[0] == '\r') {
		text = text[1:]
	}
	for len(text) > 0 {
		last := text[len(text)-1]
		if last != ' ' && last != '\t' && last != '\r' {
			break
		}
		text = text[:len(text)-1]
	}
	return text
}
