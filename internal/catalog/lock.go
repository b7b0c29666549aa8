// File path: internal/catalog/lock.go

package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/recollect-dev/recollect/internal/common"
)

// staleLockAge is how old a lock file may be before a new run reclaims it.
const staleLockAge = 2 * time.Hour

// Lock is an advisory single-writer lock for sync runs, backed by a JSON
// file next to the catalog database.
type Lock struct {
	path  string
	token string
}

type lockPayload struct {
	PID       int    `json:"pid"`
	Token     string `json:"token"`
	CreatedAt string `json:"created_at"`
}

// AcquireLock takes the sync lock. A fresh lock held by another run fails
// with an error unless ignore is set; stale locks are reclaimed.
func AcquireLock(dir string, ignore bool) (*Lock, error) {
	path := filepath.Join(dir, "sync.lock")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	if data, err := os.ReadFile(path); err == nil && !ignore {
		var existing lockPayload
		if json.Unmarshal(data, &existing) == nil {
			created, parseErr := time.Parse(time.RFC3339, existing.CreatedAt)
			if parseErr == nil && time.Since(created) < staleLockAge {
				return nil, fmt.Errorf("sync already running (pid %d, lock %s)", existing.PID, path)
			}
			common.Logger().Warn("reclaiming stale sync lock", "path", path, "pid", existing.PID)
		}
	}
	lock := &Lock{path: path, token: uuid.NewString()}
	payload, err := json.Marshal(lockPayload{
		PID:       os.Getpid(),
		Token:     lock.token,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("encode lock: %w", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return nil, fmt.Errorf("write lock: %w", err)
	}
	return lock, nil
}

// Release removes the lock file when this run still owns it.
func (l *Lock) Release() {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return
	}
	var payload lockPayload
	if json.Unmarshal(data, &payload) == nil && payload.Token != l.token {
		return
	}
	if err := os.Remove(l.path); err != nil {
		common.Logger().Warn("lock release failed", "path", l.path, "error", err)
	}
}
