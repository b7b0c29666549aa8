// File path: internal/catalog/scan.go

package catalog

import (
	"time"

	"github.com/recollect-dev/recollect/internal/adapters"
	"github.com/recollect-dev/recollect/internal/common"
)

// ScanStats summarizes one discovery pass.
type ScanStats struct {
	Discovered int      `json:"discovered"`
	Indexed    int      `json:"indexed"`
	Updated    int      `json:"updated"`
	Skipped    int      `json:"skipped"`
	Errors     int      `json:"errors"`
	RunIDs     []string `json:"run_ids,omitempty"`
}

// IndexNewSessions walks every connected platform, discovers sessions in
// the window that are not yet cataloged, and indexes them. A non-empty
// runID restricts the pass to that single session and re-reads it even when
// already cataloged. maxSessions bounds how many new sessions one pass will
// take; zero means unbounded. With dryRun set nothing is written.
func (s *Store) IndexNewSessions(agents []adapters.ConnectedAgent, runID string, start, end *time.Time, maxSessions int, dryRun, force bool) (ScanStats, error) {
	stats := ScanStats{}
	known, err := s.KnownRunIDs()
	if err != nil {
		return stats, err
	}
	if force {
		// A forced pass re-reads everything and refreshes existing rows.
		known = map[string]struct{}{}
	}
	if runID != "" {
		delete(known, runID)
	}
	for _, agent := range agents {
		records := agent.Adapter.IterSessions(agent.Entry.Path, start, end, known)
		common.Logger().Info("platform scanned",
			"platform", agent.Adapter.Name(), "root", agent.Entry.Path, "sessions", len(records))
		for _, record := range records {
			if runID != "" && record.RunID != runID {
				continue
			}
			stats.Discovered++
			if maxSessions > 0 && len(stats.RunIDs) >= maxSessions {
				stats.Skipped++
				continue
			}
			if dryRun {
				stats.RunIDs = append(stats.RunIDs, record.RunID)
				continue
			}
			created, err := s.IndexSessionForFTS(DocFromRecord(record))
			if err != nil {
				stats.Errors++
				common.Logger().Warn("session index failed",
					"run_id", record.RunID, "platform", record.AgentType, "error", err)
				continue
			}
			if created {
				stats.Indexed++
			} else {
				stats.Updated++
			}
			stats.RunIDs = append(stats.RunIDs, record.RunID)
		}
	}
	return stats, nil
}
