// File path: internal/adapters/cursor.go

package adapters

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/recollect-dev/recollect/internal/common"
	"github.com/recollect-dev/recollect/internal/timeutil"
)

const (
	cursorStateFile     = "state.vscdb"
	composerKeyPrefix   = "composerData:"
	bubbleKeyPrefix     = "bubbleId:"
	cursorBusyTimeoutMS = 2000
)

// CursorAdapter reads composer transcripts from Cursor's global storage
// keyspace, a SQLite key/value table named cursorDiskKV.
type CursorAdapter struct{}

func NewCursorAdapter() *CursorAdapter { return &CursorAdapter{} }

func (a *CursorAdapter) Name() string { return "cursor" }

func (a *CursorAdapter) DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "Cursor", "User", "globalStorage")
}

// resolveStateDBs locates the state.vscdb files behind root: root may point
// at a database file itself, a directory containing one, or a directory
// whose immediate children each hold a shard.
func resolveStateDBs(root string) []string {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil
	}
	if info, err := os.Stat(root); err == nil && !info.IsDir() {
		return []string{root}
	}
	direct := filepath.Join(root, cursorStateFile)
	if _, err := os.Stat(direct); err == nil {
		return []string{direct}
	}
	matches, err := filepath.Glob(filepath.Join(root, "*", cursorStateFile))
	if err != nil {
		return nil
	}
	sort.Strings(matches)
	return matches
}

// cursorSessionID extracts the run id from a composer or bubble key.
func cursorSessionID(key string) string {
	for _, prefix := range []string{composerKeyPrefix, bubbleKeyPrefix} {
		if strings.HasPrefix(key, prefix) {
			return strings.TrimPrefix(key, prefix)
		}
	}
	return ""
}

func openCursorDB(path string) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(%d)&_pragma=query_only(1)", path, cursorBusyTimeoutMS)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open cursor state db: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

func (a *CursorAdapter) CountSessions(root string) int {
	total := 0
	for _, path := range resolveStateDBs(root) {
		db, err := openCursorDB(path)
		if err != nil {
			continue
		}
		var count int
		err = db.Get(&count,
			"SELECT COUNT(*) FROM cursorDiskKV WHERE key LIKE ? OR key LIKE ?",
			composerKeyPrefix+"%", bubbleKeyPrefix+"%")
		db.Close()
		if err == nil {
			total += count
		}
	}
	return total
}

// FindSessionPath reports the shard holding the session id, preferring exact
// prefix matches and falling back to a substring scan whose hit must still
// carry a known key prefix.
func (a *CursorAdapter) FindSessionPath(sessionID, root string) string {
	for _, path := range resolveStateDBs(root) {
		db, err := openCursorDB(path)
		if err != nil {
			continue
		}
		key := findCursorKey(db, sessionID)
		db.Close()
		if key != "" {
			return path
		}
	}
	return ""
}

func findCursorKey(db *sqlx.DB, sessionID string) string {
	for _, prefix := range []string{composerKeyPrefix, bubbleKeyPrefix} {
		var key string
		err := db.Get(&key, "SELECT key FROM cursorDiskKV WHERE key = ? LIMIT 1", prefix+sessionID)
		if err == nil && key != "" {
			return key
		}
	}
	var candidates []string
	err := db.Select(&candidates,
		"SELECT key FROM cursorDiskKV WHERE key LIKE ? LIMIT 20", "%"+sessionID+"%")
	if err != nil {
		return ""
	}
	for _, key := range candidates {
		if strings.HasPrefix(key, composerKeyPrefix) || strings.HasPrefix(key, bubbleKeyPrefix) {
			return key
		}
	}
	return ""
}

func (a *CursorAdapter) ReadSession(path, sessionID string) *ViewerSession {
	db, err := openCursorDB(path)
	if err != nil {
		common.Logger().Warn("cursor state db unreachable", "path", path, "error", err)
		return nil
	}
	defer db.Close()
	key := findCursorKey(db, sessionID)
	if key == "" {
		return nil
	}
	var raw []byte
	if err := db.Get(&raw, "SELECT value FROM cursorDiskKV WHERE key = ?", key); err != nil {
		return nil
	}
	payload, ok := decodeJSONValue(raw)
	if !ok {
		common.Logger().Warn("cursor payload undecodable", "key", key)
		return nil
	}
	session := &ViewerSession{RunID: sessionID, AgentType: a.Name(), Path: path}
	for _, entry := range extractMessageArray(payload) {
		msg, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		viewer := ViewerMessage{Role: normalizeRole(msg), Text: extractText(msg)}
		if ts, ok := extractTimestamp(msg); ok {
			viewer.Timestamp = &ts
		}
		if viewer.Text == "" && viewer.Role != "tool" {
			continue
		}
		session.Messages = append(session.Messages, viewer)
	}
	return session
}

type cursorRow struct {
	Key   string `db:"key"`
	Value []byte `db:"value"`
}

func (a *CursorAdapter) IterSessions(root string, start, end *time.Time, known map[string]struct{}) []SessionRecord {
	var records []SessionRecord
	seen := make(map[string]struct{})
	for _, path := range resolveStateDBs(root) {
		records = append(records, iterStateDB(path, start, end, known, seen)...)
	}
	return records
}

func iterStateDB(path string, start, end *time.Time, known, seen map[string]struct{}) []SessionRecord {
	db, err := openCursorDB(path)
	if err != nil {
		common.Logger().Warn("cursor state db unreachable", "path", path, "error", err)
		return nil
	}
	defer db.Close()
	// Composer rows carry the full conversation, so they win the dedupe
	// when a session also appears under bubble keys.
	var rows []cursorRow
	for _, prefix := range []string{composerKeyPrefix, bubbleKeyPrefix} {
		var batch []cursorRow
		if err := db.Select(&batch,
			"SELECT key, value FROM cursorDiskKV WHERE key LIKE ?", prefix+"%"); err != nil {
			continue
		}
		rows = append(rows, batch...)
	}
	var records []SessionRecord
	for _, row := range rows {
		runID := cursorSessionID(row.Key)
		if runID == "" {
			continue
		}
		if _, dup := seen[runID]; dup {
			continue
		}
		seen[runID] = struct{}{}
		if _, indexed := known[runID]; indexed {
			continue
		}
		payload, ok := decodeJSONValue(row.Value)
		if !ok {
			continue
		}
		record := buildCursorRecord(runID, path, payload)
		if !recordInWindow(record, start, end) {
			continue
		}
		records = append(records, record)
	}
	return records
}

func buildCursorRecord(runID, path string, payload any) SessionRecord {
	record := SessionRecord{RunID: runID, AgentType: "cursor", SessionPath: path}
	var earliest, latest *time.Time
	for _, entry := range extractMessageArray(payload) {
		msg, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		role := normalizeRole(msg)
		switch role {
		case "tool":
			record.ToolCallCount++
		default:
			record.MessageCount++
		}
		if role == "user" {
			record.Summaries = appendSummary(record.Summaries, extractText(msg))
		}
		if ts, ok := extractTimestamp(msg); ok {
			if earliest == nil || ts.Before(*earliest) {
				t := ts
				earliest = &t
			}
			if latest == nil || ts.After(*latest) {
				t := ts
				latest = &t
			}
		}
	}
	record.StartTime = earliest
	if earliest != nil && latest != nil {
		record.DurationMS = latest.Sub(*earliest).Milliseconds()
	}
	return record
}

// recordInWindow applies the shared window policy to a discovery record.
func recordInWindow(record SessionRecord, start, end *time.Time) bool {
	if record.StartTime == nil {
		return timeutil.InWindow(time.Time{}, false, start, end)
	}
	return timeutil.InWindow(*record.StartTime, true, start, end)
}
