// File path: internal/catalog/types.go

package catalog

import (
	"encoding/json"
	"time"

	"github.com/recollect-dev/recollect/internal/adapters"
)

// SessionDoc is one catalog row. Timestamps are stored as RFC 3339 text;
// nullable columns map to pointers.
type SessionDoc struct {
	ID            int64   `db:"id" json:"id"`
	RunID         string  `db:"run_id" json:"run_id"`
	AgentType     string  `db:"agent_type" json:"agent_type"`
	SessionPath   string  `db:"session_path" json:"session_path"`
	RepoName      string  `db:"repo_name" json:"repo_name"`
	StartTime     *string `db:"start_time" json:"start_time,omitempty"`
	Status        string  `db:"status" json:"status"`
	DurationMS    int64   `db:"duration_ms" json:"duration_ms"`
	MessageCount  int     `db:"message_count" json:"message_count"`
	ToolCallCount int     `db:"tool_call_count" json:"tool_call_count"`
	ErrorCount    int     `db:"error_count" json:"error_count"`
	TotalTokens   int64   `db:"total_tokens" json:"total_tokens"`
	Summaries     string  `db:"summaries" json:"-"`
	Content       string  `db:"content" json:"-"`
	SummaryText   *string `db:"summary_text" json:"summary_text,omitempty"`
	Tags          *string `db:"tags" json:"tags,omitempty"`
	Outcome       *string `db:"outcome" json:"outcome,omitempty"`
	IndexedAt     string  `db:"indexed_at" json:"indexed_at"`
}

// SummaryList decodes the stored summaries JSON array.
func (d SessionDoc) SummaryList() []string {
	var list []string
	if err := json.Unmarshal([]byte(d.Summaries), &list); err != nil {
		return nil
	}
	return list
}

// DocFromRecord converts an adapter discovery record into a catalog row.
// Content holds only the short previews joined for full-text search; full
// transcripts never enter the catalog.
func DocFromRecord(record adapters.SessionRecord) SessionDoc {
	doc := SessionDoc{
		RunID:         record.RunID,
		AgentType:     record.AgentType,
		SessionPath:   record.SessionPath,
		RepoName:      record.RepoName,
		Status:        "completed",
		DurationMS:    record.DurationMS,
		MessageCount:  record.MessageCount,
		ToolCallCount: record.ToolCallCount,
		TotalTokens:   record.TotalTokens,
	}
	if record.StartTime != nil {
		formatted := record.StartTime.UTC().Format(time.RFC3339)
		doc.StartTime = &formatted
	}
	summaries := record.Summaries
	if summaries == nil {
		summaries = []string{}
	}
	encoded, err := json.Marshal(summaries)
	if err == nil {
		doc.Summaries = string(encoded)
	} else {
		doc.Summaries = "[]"
	}
	content := ""
	for i, summary := range summaries {
		if i > 0 {
			content += "\n"
		}
		content += summary
	}
	doc.Content = content
	return doc
}

// ServiceRun is one recorded sync or maintenance invocation.
type ServiceRun struct {
	ID         int64   `db:"id" json:"id"`
	Service    string  `db:"service" json:"service"`
	RunID      string  `db:"run_id" json:"run_id"`
	Status     string  `db:"status" json:"status"`
	StartedAt  string  `db:"started_at" json:"started_at"`
	FinishedAt *string `db:"finished_at" json:"finished_at,omitempty"`
	ExitCode   int     `db:"exit_code" json:"exit_code"`
	Details    string  `db:"details" json:"-"`
}

// DetailMap decodes the details JSON payload.
func (r ServiceRun) DetailMap() map[string]any {
	var details map[string]any
	if err := json.Unmarshal([]byte(r.Details), &details); err != nil {
		return nil
	}
	return details
}

// ExtractFields is a partial update of the extraction columns; nil fields
// keep their stored value.
type ExtractFields struct {
	SummaryText *string
	Tags        *string
	Outcome     *string
	Status      *string
	TotalTokens *int64
}
