// File path: internal/catalog/stats.go

package catalog

import "fmt"

// Stats is a catalog-wide aggregate for the dashboard.
type Stats struct {
	Sessions      int            `json:"sessions"`
	Messages      int64          `json:"messages"`
	ToolCalls     int64          `json:"tool_calls"`
	TotalTokens   int64          `json:"total_tokens"`
	FTSIndexed    int            `json:"fts_indexed"`
	ByAgent       map[string]int `json:"by_agent"`
	ByStatus      map[string]int `json:"by_status"`
	ExtractedDocs int            `json:"extracted_docs"`
}

// AggregateStats computes the dashboard aggregates in a handful of
// queries.
func (s *Store) AggregateStats() (Stats, error) {
	stats := Stats{ByAgent: map[string]int{}, ByStatus: map[string]int{}}

	var totals struct {
		Sessions  int   `db:"sessions"`
		Messages  int64 `db:"messages"`
		ToolCalls int64 `db:"tool_calls"`
		Tokens    int64 `db:"tokens"`
		Extracted int   `db:"extracted"`
	}
	err := s.db.Get(&totals, `SELECT
		COUNT(*) AS sessions,
		COALESCE(SUM(message_count), 0) AS messages,
		COALESCE(SUM(tool_call_count), 0) AS tool_calls,
		COALESCE(SUM(total_tokens), 0) AS tokens,
		COALESCE(SUM(CASE WHEN summary_text IS NOT NULL THEN 1 ELSE 0 END), 0) AS extracted
		FROM session_docs`)
	if err != nil {
		return stats, fmt.Errorf("aggregate totals: %w", err)
	}
	stats.Sessions = totals.Sessions
	stats.Messages = totals.Messages
	stats.ToolCalls = totals.ToolCalls
	stats.TotalTokens = totals.Tokens
	stats.ExtractedDocs = totals.Extracted

	agentRows := []struct {
		Agent string `db:"agent_type"`
		Count int    `db:"count"`
	}{}
	if err := s.db.Select(&agentRows, "SELECT agent_type, COUNT(*) AS count FROM session_docs GROUP BY agent_type"); err != nil {
		return stats, fmt.Errorf("aggregate by agent: %w", err)
	}
	for _, row := range agentRows {
		stats.ByAgent[row.Agent] = row.Count
	}

	stats.ByStatus, err = s.CountSessionJobsByStatus()
	if err != nil {
		return stats, err
	}
	stats.FTSIndexed, err = s.CountFTSIndexed()
	if err != nil {
		return stats, err
	}
	return stats, nil
}
