// File path: internal/extract/offline.go

package extract

import (
	"context"
	"fmt"
	"strings"
)

// OfflineExtractor derives summaries without any model call. It is the
// fallback when no API key is configured and the fixture-friendly path in
// tests: output is deterministic for a given transcript.
type OfflineExtractor struct{}

func NewOfflineExtractor() *OfflineExtractor { return &OfflineExtractor{} }

func (e *OfflineExtractor) Extract(ctx context.Context, candidate Candidate) (Summary, error) {
	if candidate.Session == nil || len(candidate.Session.Messages) == 0 {
		return Summary{}, fmt.Errorf("extract %s: empty transcript", candidate.RunID)
	}
	summary := Summary{
		Tags:    offlineTags(candidate),
		Outcome: "indexed",
	}
	var firstPrompt string
	users, assistants, tools := 0, 0, 0
	for _, msg := range candidate.Session.Messages {
		switch msg.Role {
		case "user":
			users++
			if firstPrompt == "" {
				firstPrompt = strings.TrimSpace(msg.Text)
			}
		case "tool":
			tools++
		default:
			assistants++
		}
	}
	if firstPrompt != "" {
		summary.SummaryText = fmt.Sprintf("%s (%d user, %d assistant, %d tool messages)",
			excerpt(firstPrompt, 200), users, assistants, tools)
	} else {
		summary.SummaryText = fmt.Sprintf("session with %d user, %d assistant, %d tool messages",
			users, assistants, tools)
	}
	return summary, nil
}

func offlineTags(candidate Candidate) []string {
	tags := []string{"agent:" + candidate.AgentType}
	if candidate.RepoName != "" {
		tags = append(tags, "repo:"+candidate.RepoName)
	}
	return tags
}
