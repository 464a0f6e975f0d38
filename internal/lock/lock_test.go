package lock

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kestrelsync/kestrel/internal/domain"
	"github.com/kestrelsync/kestrel/internal/fsutil"
)

func TestAcquireRelease(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)

	if err := l.Acquire(); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, fsutil.LockFileName)); err != nil {
		t.Fatal("lock file not created")
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, fsutil.LockFileName)); !os.IsNotExist(err) {
		t.Error("lock file not removed on release")
	}
}

func TestAcquire_HeldByLiveProcess(t *testing.T) {
	dir := t.TempDir()

	first := New(dir)
	if err := first.Acquire(); err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	defer first.Release()

	second := New(dir)
	if err := second.Acquire(); !errors.Is(err, domain.ErrLockHeld) {
		t.Fatalf("err = %v, want ErrLockHeld", err)
	}
}

func TestAcquire_BreaksDeadProcessLock(t *testing.T) {
	dir := t.TempDir()
	hostname, _ := os.Hostname()

	// A PID well above any live process on a test machine.
	writeLockFile(t, dir, Info{
		PID:       1 << 22,
		Hostname:  hostname,
		StartTime: time.Now(),
	})

	l := New(dir)
	if err := l.Acquire(); err != nil {
		t.Fatalf("stale lock not broken: %v", err)
	}
	l.Release()
}

func TestAcquire_BreaksTimedOutLock(t *testing.T) {
	dir := t.TempDir()

	// A different host cannot be probed, so only the timeout applies.
	writeLockFile(t, dir, Info{
		PID:       os.Getpid(),
		Hostname:  "some-other-host",
		StartTime: time.Now().Add(-2 * time.Hour),
	})

	l := New(dir)
	if err := l.Acquire(); err != nil {
		t.Fatalf("timed-out lock not broken: %v", err)
	}
	l.Release()
}

func TestAcquire_RemoteLockWithinTimeout(t *testing.T) {
	dir := t.TempDir()

	writeLockFile(t, dir, Info{
		PID:       1,
		Hostname:  "some-other-host",
		StartTime: time.Now(),
	})

	l := New(dir)
	if err := l.Acquire(); !errors.Is(err, domain.ErrLockHeld) {
		t.Fatalf("err = %v, want ErrLockHeld for fresh remote lock", err)
	}
}

func TestRelease_WithoutAcquire(t *testing.T) {
	if err := New(t.TempDir()).Release(); err != nil {
		t.Errorf("Release without Acquire failed: %v", err)
	}
}

func TestRelease_DoesNotRemoveForeignLock(t *testing.T) {
	dir := t.TempDir()

	l := New(dir)
	if err := l.Acquire(); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	// Simulate another process replacing the lock underneath us.
	hostname, _ := os.Hostname()
	os.Remove(filepath.Join(dir, fsutil.LockFileName))
	writeLockFile(t, dir, Info{
		PID:       os.Getpid() + 1,
		Hostname:  hostname,
		StartTime: time.Now(),
	})

	if err := l.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, fsutil.LockFileName)); err != nil {
		t.Error("Release removed a lock it does not hold")
	}
}

func TestSetStaleTimeout(t *testing.T) {
	dir := t.TempDir()

	writeLockFile(t, dir, Info{
		PID:       1,
		Hostname:  "some-other-host",
		StartTime: time.Now().Add(-2 * time.Second),
	})

	l := New(dir)
	l.SetStaleTimeout(time.Second)
	if err := l.Acquire(); err != nil {
		t.Fatalf("shortened timeout not honored: %v", err)
	}
}

func writeLockFile(t *testing.T, dir string, info Info) {
	t.Helper()
	data, err := json.Marshal(info)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, fsutil.LockFileName), data, 0644); err != nil {
		t.Fatal(err)
	}
}
