// File path: internal/extract/collab.go

package extract

import "context"

// Metadata carries session provenance to extraction collaborators.
type Metadata struct {
	RunID     string
	AgentType string
	RepoName  string
	StartTime string
}

// MemoryCandidate is one durable learning proposed from a transcript. The
// memory pipeline that ranks, dedups, and persists these lives outside this
// module; callers here only transport them.
type MemoryCandidate struct {
	Primitive  string   `json:"primitive"`
	Kind       string   `json:"kind"`
	Title      string   `json:"title"`
	Body       string   `json:"body"`
	Confidence float64  `json:"confidence"`
	Tags       []string `json:"tags,omitempty"`
}

// CandidateExtractor turns a transcript into memory candidates.
type CandidateExtractor interface {
	ExtractCandidates(ctx context.Context, transcript string, meta Metadata) ([]MemoryCandidate, error)
}

// WriteCounts breaks down a memory write pass by effect.
type WriteCounts struct {
	Add    int `json:"add"`
	Update int `json:"update"`
	NoOp   int `json:"noop"`
}

// WriteReport describes what a memory writer did with one trace.
type WriteReport struct {
	Counts       WriteCounts `json:"counts"`
	WrittenPaths []string    `json:"written_paths,omitempty"`
	SummaryPath  string      `json:"summary_path,omitempty"`
}

// MemoryWriter persists extracted learnings under a memory root. Implemented
// by the agent runtime; this module only invokes it.
type MemoryWriter interface {
	WriteMemory(ctx context.Context, tracePath, memoryRoot string) (*WriteReport, error)
}
