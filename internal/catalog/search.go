// File path: internal/catalog/search.go

package catalog

import (
	"fmt"
	"strings"
	"time"
)

// ListSessionsWindow pages through catalog rows, optionally narrowed by
// agent type and a start-time window, newest first. Returns the page and
// the total row count under the same filters.
func (s *Store) ListSessionsWindow(limit, offset int, agentTypes []string, since, until *time.Time) ([]SessionDoc, int, error) {
	where, args := windowClauses(agentTypes, since, until)
	countQuery := "SELECT COUNT(*) FROM session_docs" + where
	var total int
	if err := s.db.Get(&total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}
	query := "SELECT * FROM session_docs" + where +
		" ORDER BY start_time DESC, indexed_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)
	var docs []SessionDoc
	if err := s.db.Select(&docs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	return docs, total, nil
}

func windowClauses(agentTypes []string, since, until *time.Time) (string, []any) {
	var clauses []string
	var args []any
	if len(agentTypes) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(agentTypes)), ",")
		clauses = append(clauses, "agent_type IN ("+placeholders+")")
		for _, at := range agentTypes {
			args = append(args, at)
		}
	}
	if since != nil {
		clauses = append(clauses, "start_time >= ?")
		args = append(args, since.UTC().Format(time.RFC3339))
	}
	if until != nil {
		clauses = append(clauses, "start_time <= ?")
		args = append(args, until.UTC().Format(time.RFC3339))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// SearchFilters narrows a full-text query.
type SearchFilters struct {
	Status     string
	Repo       string
	AgentTypes []string
	Since      *time.Time
	Until      *time.Time
	Limit      int
	Offset     int
}

// SearchHit is one full-text match with a highlighted snippet.
type SearchHit struct {
	SessionDoc
	Snippet string `db:"snippet" json:"snippet"`
}

// Search runs an FTS5 MATCH over the indexed previews and joins the
// catalog rows, best match first.
func (s *Store) Search(query string, filters SearchFilters) ([]SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	clauses := []string{"sessions_fts MATCH ?"}
	args := []any{query}
	if filters.Status != "" {
		clauses = append(clauses, "d.status = ?")
		args = append(args, filters.Status)
	}
	if filters.Repo != "" {
		clauses = append(clauses, "d.repo_name LIKE ?")
		args = append(args, "%"+filters.Repo+"%")
	}
	if len(filters.AgentTypes) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(filters.AgentTypes)), ",")
		clauses = append(clauses, "d.agent_type IN ("+placeholders+")")
		for _, at := range filters.AgentTypes {
			args = append(args, at)
		}
	}
	if filters.Since != nil {
		clauses = append(clauses, "d.start_time >= ?")
		args = append(args, filters.Since.UTC().Format(time.RFC3339))
	}
	if filters.Until != nil {
		clauses = append(clauses, "d.start_time <= ?")
		args = append(args, filters.Until.UTC().Format(time.RFC3339))
	}
	sqlQuery := `SELECT d.*, snippet(sessions_fts, 3, '<mark>', '</mark>', '...', 24) AS snippet
		FROM sessions_fts
		JOIN session_docs d ON d.id = sessions_fts.rowid
		WHERE ` + strings.Join(clauses, " AND ") + `
		ORDER BY rank LIMIT ? OFFSET ?`
	args = append(args, limit, filters.Offset)
	var hits []SearchHit
	if err := s.db.Select(&hits, sqlQuery, args...); err != nil {
		return nil, fmt.Errorf("search sessions: %w", err)
	}
	return hits, nil
}
