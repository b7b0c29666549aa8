// File path: cmd/recollect/status.go

package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/recollect-dev/recollect/internal/adapters"
	"github.com/recollect-dev/recollect/internal/catalog"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show catalog and platform status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, store, _, err := loadRuntime()
			if err != nil {
				return err
			}
			defer store.Close()

			registry := adapters.NewRegistry(cfg.PlatformsPath)
			platforms, err := registry.List()
			if err != nil {
				return err
			}
			stats, err := store.AggregateStats()
			if err != nil {
				return err
			}
			var lastSync, lastMaintain *catalog.ServiceRun
			if run, err := store.LatestServiceRun("sync"); err == nil {
				lastSync = run
			}
			if run, err := store.LatestServiceRun("maintain"); err == nil {
				lastMaintain = run
			}

			payload := map[string]any{
				"config":    cfg.PublicDict(),
				"platforms": platforms,
				"stats":     stats,
			}
			if lastSync != nil {
				payload["last_sync"] = lastSync
			}
			if lastMaintain != nil {
				payload["last_maintain"] = lastMaintain
			}
			emit(payload, func() {
				for _, line := range statusLines(cfg.SessionsDB, stats, platforms, lastSync, lastMaintain) {
					fmt.Println(line)
				}
			})
			return nil
		},
	}
}

func statusLines(dbPath string, stats catalog.Stats, platforms []adapters.PlatformEntry, lastSync, lastMaintain *catalog.ServiceRun) []string {
	lines := []string{
		fmt.Sprintf("catalog: %s", dbPath),
		fmt.Sprintf("sessions: %d (%d extracted, %d in full-text index)",
			stats.Sessions, stats.ExtractedDocs, stats.FTSIndexed),
	}
	statuses := make([]string, 0, len(stats.ByStatus))
	for status := range stats.ByStatus {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		lines = append(lines, fmt.Sprintf("  %s: %d", status, stats.ByStatus[status]))
	}
	if len(platforms) == 0 {
		lines = append(lines, "platforms: none connected")
	}
	for _, entry := range platforms {
		lines = append(lines, fmt.Sprintf("platform %s: %s", entry.Name, entry.Path))
	}
	if lastSync != nil {
		lines = append(lines, fmt.Sprintf("last sync: %s (%s)", lastSync.StartedAt, lastSync.Status))
	}
	if lastMaintain != nil {
		lines = append(lines, fmt.Sprintf("last maintain: %s (%s)", lastMaintain.StartedAt, lastMaintain.Status))
	}
	return lines
}
