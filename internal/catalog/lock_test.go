// File path: internal/catalog/lock_test.go

package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLockAcquireAndRelease(t *testing.T) {
	dir := t.TempDir()
	lock, err := AcquireLock(dir, false)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "sync.lock")); err != nil {
		t.Fatalf("lock file missing: %v", err)
	}

	if _, err := AcquireLock(dir, false); err == nil {
		t.Fatal("second acquire should fail while lock is held")
	}

	lock.Release()
	if _, err := os.Stat(filepath.Join(dir, "sync.lock")); !os.IsNotExist(err) {
		t.Fatalf("lock file not removed: %v", err)
	}

	if _, err := AcquireLock(dir, false); err != nil {
		t.Fatalf("reacquire after release: %v", err)
	}
}

func TestLockIgnoreOverride(t *testing.T) {
	dir := t.TempDir()
	if _, err := AcquireLock(dir, false); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	second, err := AcquireLock(dir, true)
	if err != nil {
		t.Fatalf("ignore override should succeed: %v", err)
	}
	second.Release()
}

func TestLockStaleReclaim(t *testing.T) {
	dir := t.TempDir()
	stale, err := json.Marshal(lockPayload{
		PID:       999999,
		Token:     "old",
		CreatedAt: time.Now().Add(-3 * time.Hour).UTC().Format(time.RFC3339),
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sync.lock"), stale, 0o644); err != nil {
		t.Fatalf("write stale lock: %v", err)
	}
	if _, err := AcquireLock(dir, false); err != nil {
		t.Fatalf("stale lock should be reclaimed: %v", err)
	}
}

func TestLockReleaseRespectsForeignOwner(t *testing.T) {
	dir := t.TempDir()
	lock, err := AcquireLock(dir, false)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	// Another run overwrote the lock; release must leave it alone.
	foreign, _ := json.Marshal(lockPayload{
		PID: 42, Token: "someone-else", CreatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err := os.WriteFile(filepath.Join(dir, "sync.lock"), foreign, 0o644); err != nil {
		t.Fatalf("overwrite lock: %v", err)
	}
	lock.Release()
	if _, err := os.Stat(filepath.Join(dir, "sync.lock")); err != nil {
		t.Fatal("foreign lock was removed")
	}
}
