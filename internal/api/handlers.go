// File path: internal/api/handlers.go

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/recollect-dev/recollect/internal/adapters"
	"github.com/recollect-dev/recollect/internal/catalog"
	"github.com/recollect-dev/recollect/internal/common"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
	maxOffset       = 10000
)

func clampLimit(raw string) int {
	limit := defaultPageSize
	if raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return limit
}

func clampOffset(raw string) int {
	offset := 0
	if raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}
	if offset > maxOffset {
		offset = maxOffset
	}
	return offset
}

func agentFilter(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var agents []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			agents = append(agents, trimmed)
		}
	}
	return agents
}

// scopeBounds maps the dashboard scope buckets onto a start time.
func scopeBounds(scope string, now time.Time) *time.Time {
	switch strings.ToLower(strings.TrimSpace(scope)) {
	case "today":
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		return &start
	case "week":
		start := now.Add(-7 * 24 * time.Hour)
		return &start
	case "month":
		start := now.Add(-30 * 24 * time.Hour)
		return &start
	default:
		return nil
	}
}

type runsResponse struct {
	Runs   []runView `json:"runs"`
	Total  int       `json:"total"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
}

type runView struct {
	catalog.SessionDoc
	Summaries []string `json:"summaries"`
}

func viewOf(doc catalog.SessionDoc) runView {
	summaries := doc.SummaryList()
	if summaries == nil {
		summaries = []string{}
	}
	return runView{SessionDoc: doc, Summaries: summaries}
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := clampLimit(query.Get("limit"))
	offset := clampOffset(query.Get("offset"))
	agents := agentFilter(query.Get("agent"))
	since := scopeBounds(query.Get("scope"), time.Now().UTC())

	docs, total, err := s.store.ListSessionsWindow(limit, offset, agents, since, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	views := make([]runView, 0, len(docs))
	for _, doc := range docs {
		views = append(views, viewOf(doc))
	}
	writeJSON(w, http.StatusOK, runsResponse{Runs: views, Total: total, Limit: limit, Offset: offset})
}

func (s *Server) handleRunStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.AggregateStats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q := strings.TrimSpace(query.Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("missing query parameter q"))
		return
	}
	filters := catalog.SearchFilters{
		Status:     strings.TrimSpace(query.Get("status")),
		Repo:       strings.TrimSpace(query.Get("repo")),
		AgentTypes: agentFilter(query.Get("agent")),
		Since:      scopeBounds(query.Get("scope"), time.Now().UTC()),
		Limit:      clampLimit(query.Get("limit")),
		Offset:     clampOffset(query.Get("offset")),
	}
	hits, err := s.store.Search(q, filters)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if hits == nil {
		hits = []catalog.SearchHit{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": q, "hits": hits, "count": len(hits)})
}

// handleRunMessages loads the transcript fresh from platform storage; the
// catalog itself never holds full message bodies.
func (s *Server) handleRunMessages(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	doc, err := s.store.FetchSessionDoc(runID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if doc == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("run %s not found", runID))
		return
	}
	adapter, err := adapters.New(doc.AgentType)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	session := adapter.ReadSession(doc.SessionPath, runID)
	if session == nil {
		writeError(w, http.StatusNotFound,
			fmt.Errorf("transcript for %s no longer readable at %s", runID, doc.SessionPath))
		return
	}
	if session.Messages == nil {
		session.Messages = []adapters.ViewerMessage{}
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	platforms, err := s.registry.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if platforms == nil {
		platforms = []adapters.PlatformEntry{}
	}
	counts, err := s.store.CountSessionJobsByStatus()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	status := map[string]any{
		"config":        s.cfg.PublicDict(),
		"platforms":     platforms,
		"status_counts": counts,
	}
	if run, err := s.store.LatestServiceRun("sync"); err == nil && run != nil {
		status["last_sync"] = run
	}
	if run, err := s.store.LatestServiceRun("maintain"); err == nil && run != nil {
		status["last_maintain"] = run
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	entries := common.LogEntries()
	if entries == nil {
		entries = []common.LogEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": entries, "count": len(entries)})
}
