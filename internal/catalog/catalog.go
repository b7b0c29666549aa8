// File path: internal/catalog/catalog.go

package catalog

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/recollect-dev/recollect/internal/common"
)

// IndexSessionForFTS upserts a session document and rebuilds its full-text
// row in the same transaction, keeping session_docs and sessions_fts in
// lockstep. Returns true when the run id was not indexed before.
func (s *Store) IndexSessionForFTS(doc SessionDoc) (bool, error) {
	if strings.TrimSpace(doc.RunID) == "" {
		return false, errors.New("index session: empty run id")
	}
	if doc.Status == "" {
		doc.Status = "completed"
	}
	if doc.Summaries == "" {
		doc.Summaries = "[]"
	}
	tx, err := s.db.Beginx()
	if err != nil {
		return false, fmt.Errorf("begin index tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	var existingID int64
	err = tx.Get(&existingID, "SELECT id FROM session_docs WHERE run_id = ?", doc.RunID)
	created := errors.Is(err, sql.ErrNoRows)
	if err != nil && !created {
		return false, fmt.Errorf("probe session doc: %w", err)
	}

	indexedAt := nowRFC3339()
	if created {
		res, err := tx.Exec(`INSERT INTO session_docs
			(run_id, agent_type, session_path, repo_name, start_time, status,
			 duration_ms, message_count, tool_call_count, error_count, total_tokens,
			 summaries, content, summary_text, tags, outcome, indexed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			doc.RunID, doc.AgentType, doc.SessionPath, doc.RepoName, doc.StartTime, doc.Status,
			doc.DurationMS, doc.MessageCount, doc.ToolCallCount, doc.ErrorCount, doc.TotalTokens,
			doc.Summaries, doc.Content, doc.SummaryText, doc.Tags, doc.Outcome, indexedAt)
		if err != nil {
			return false, fmt.Errorf("insert session doc: %w", err)
		}
		existingID, err = res.LastInsertId()
		if err != nil {
			return false, fmt.Errorf("resolve session doc id: %w", err)
		}
	} else {
		_, err = tx.Exec(`UPDATE session_docs SET
			agent_type = ?, session_path = ?, repo_name = ?, start_time = ?, status = ?,
			duration_ms = ?, message_count = ?, tool_call_count = ?, total_tokens = ?,
			summaries = ?, content = ?, indexed_at = ?
			WHERE id = ?`,
			doc.AgentType, doc.SessionPath, doc.RepoName, doc.StartTime, doc.Status,
			doc.DurationMS, doc.MessageCount, doc.ToolCallCount, doc.TotalTokens,
			doc.Summaries, doc.Content, indexedAt, existingID)
		if err != nil {
			return false, fmt.Errorf("update session doc: %w", err)
		}
	}

	if _, err := tx.Exec("DELETE FROM sessions_fts WHERE rowid = ?", existingID); err != nil {
		return false, fmt.Errorf("clear fts row: %w", err)
	}
	_, err = tx.Exec(`INSERT INTO sessions_fts (rowid, run_id, agent_type, repo_name, content)
		VALUES (?, ?, ?, ?, ?)`,
		existingID, doc.RunID, doc.AgentType, doc.RepoName, doc.Content)
	if err != nil {
		return false, fmt.Errorf("insert fts row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit index tx: %w", err)
	}
	committed = true
	return created, nil
}

// FetchSessionDoc returns the catalog row for a run id, nil when absent.
func (s *Store) FetchSessionDoc(runID string) (*SessionDoc, error) {
	var doc SessionDoc
	err := s.db.Get(&doc, "SELECT * FROM session_docs WHERE run_id = ?", runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch session doc: %w", err)
	}
	return &doc, nil
}

// KnownRunIDs returns the set of indexed run ids.
func (s *Store) KnownRunIDs() (map[string]struct{}, error) {
	var ids []string
	if err := s.db.Select(&ids, "SELECT run_id FROM session_docs"); err != nil {
		return nil, fmt.Errorf("list run ids: %w", err)
	}
	known := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		known[id] = struct{}{}
	}
	return known, nil
}

// UpdateSessionExtractFields applies a partial update to the extraction
// columns of one row. Nil fields are untouched.
func (s *Store) UpdateSessionExtractFields(runID string, fields ExtractFields) error {
	var sets []string
	var args []any
	if fields.SummaryText != nil {
		sets = append(sets, "summary_text = ?")
		args = append(args, *fields.SummaryText)
	}
	if fields.Tags != nil {
		sets = append(sets, "tags = ?")
		args = append(args, *fields.Tags)
	}
	if fields.Outcome != nil {
		sets = append(sets, "outcome = ?")
		args = append(args, *fields.Outcome)
	}
	if fields.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *fields.Status)
	}
	if fields.TotalTokens != nil {
		sets = append(sets, "total_tokens = ?")
		args = append(args, *fields.TotalTokens)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, runID)
	query := "UPDATE session_docs SET " + strings.Join(sets, ", ") + " WHERE run_id = ?"
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("update extract fields: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("update extract fields: run %s not indexed", runID)
	}
	return nil
}

// MarkSessionError flags a session as failed and bumps its error count.
func (s *Store) MarkSessionError(runID, message string) error {
	_, err := s.db.Exec(`UPDATE session_docs
		SET status = 'error', error_count = error_count + 1, outcome = ?
		WHERE run_id = ?`, message, runID)
	if err != nil {
		return fmt.Errorf("mark session error: %w", err)
	}
	return nil
}

// CountFTSIndexed reports how many rows the full-text index holds.
func (s *Store) CountFTSIndexed() (int, error) {
	var count int
	if err := s.db.Get(&count, "SELECT COUNT(*) FROM sessions_fts"); err != nil {
		return 0, fmt.Errorf("count fts rows: %w", err)
	}
	return count, nil
}

// CountSessionJobsByStatus groups the catalog rows by status.
func (s *Store) CountSessionJobsByStatus() (map[string]int, error) {
	rows := []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}{}
	err := s.db.Select(&rows, "SELECT status, COUNT(*) AS count FROM session_docs GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// Reset drops every catalog row. Destructive; callers gate it behind an
// explicit flag.
func (s *Store) Reset() error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin reset tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()
	for _, table := range []string{"sessions_fts", "session_docs", "service_runs"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reset tx: %w", err)
	}
	committed = true
	common.Logger().Info("session catalog reset", "path", s.path)
	return nil
}

// RecordServiceRun appends a sync or maintenance invocation record.
func (s *Store) RecordServiceRun(run ServiceRun) error {
	if run.Details == "" {
		run.Details = "{}"
	}
	if run.StartedAt == "" {
		run.StartedAt = nowRFC3339()
	}
	_, err := s.db.Exec(`INSERT INTO service_runs
		(service, run_id, status, started_at, finished_at, exit_code, details)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.Service, run.RunID, run.Status, run.StartedAt, run.FinishedAt, run.ExitCode, run.Details)
	if err != nil {
		return fmt.Errorf("record service run: %w", err)
	}
	return nil
}

// LatestServiceRun returns the most recent run for a service, nil when the
// service has never run.
func (s *Store) LatestServiceRun(service string) (*ServiceRun, error) {
	var run ServiceRun
	err := s.db.Get(&run, `SELECT * FROM service_runs
		WHERE service = ? ORDER BY started_at DESC, id DESC LIMIT 1`, service)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest service run: %w", err)
	}
	return &run, nil
}

// EncodeDetails serializes a details payload for a service run record.
func EncodeDetails(details map[string]any) string {
	if details == nil {
		return "{}"
	}
	encoded, err := json.Marshal(details)
	if err != nil {
		return "{}"
	}
	return string(encoded)
}
