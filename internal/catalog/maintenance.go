// File path: internal/catalog/maintenance.go

package catalog

import (
	"fmt"
	"time"
)

// RebuildFTS drops and re-inserts every full-text row from the catalog
// rows, returning how many rows were rebuilt. Used when the two tables
// drift apart.
func (s *Store) RebuildFTS() (int, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return 0, fmt.Errorf("begin fts rebuild: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()
	if _, err := tx.Exec("DELETE FROM sessions_fts"); err != nil {
		return 0, fmt.Errorf("clear fts: %w", err)
	}
	res, err := tx.Exec(`INSERT INTO sessions_fts (rowid, run_id, agent_type, repo_name, content)
		SELECT id, run_id, agent_type, repo_name, content FROM session_docs`)
	if err != nil {
		return 0, fmt.Errorf("rebuild fts: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit fts rebuild: %w", err)
	}
	committed = true
	rebuilt, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(rebuilt), nil
}

// PruneServiceRuns deletes service-run records started before the cutoff.
func (s *Store) PruneServiceRuns(cutoff time.Time) (int, error) {
	res, err := s.db.Exec("DELETE FROM service_runs WHERE started_at < ?",
		cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("prune service runs: %w", err)
	}
	pruned, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(pruned), nil
}
