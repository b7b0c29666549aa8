// File path: internal/extract/types.go

// Package extract derives summary metadata from session transcripts. The
// pipeline re-reads transcripts fresh from platform storage; only the
// derived summary, tags, and outcome flow back into the catalog.
package extract

import (
	"context"

	"github.com/recollect-dev/recollect/internal/adapters"
)

// Candidate is one session queued for extraction.
type Candidate struct {
	RunID     string
	AgentType string
	RepoName  string
	Session   *adapters.ViewerSession
}

// Summary is the extraction result written back to the catalog.
type Summary struct {
	SummaryText string   `json:"summary" jsonschema:"required"`
	Tags        []string `json:"tags" jsonschema:"required"`
	Outcome     string   `json:"outcome" jsonschema:"required"`
}

// Extractor produces a summary for one candidate.
type Extractor interface {
	Extract(ctx context.Context, candidate Candidate) (Summary, error)
}

// Result is one candidate's extraction outcome.
type Result struct {
	RunID string `json:"run_id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Report aggregates a batch of extraction results.
type Report struct {
	Attempted  int      `json:"attempted"`
	Succeeded  int      `json:"succeeded"`
	Failed     int      `json:"failed"`
	FailedRuns []string `json:"failed_runs,omitempty"`
}

// BuildReport folds results into a batch report.
func BuildReport(results []Result) Report {
	report := Report{Attempted: len(results)}
	for _, result := range results {
		if result.OK {
			report.Succeeded++
			continue
		}
		report.Failed++
		report.FailedRuns = append(report.FailedRuns, result.RunID)
	}
	return report
}
