package apply

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kestrelsync/kestrel/internal/core/fingerprint"
	"github.com/kestrelsync/kestrel/internal/domain"
	"github.com/kestrelsync/kestrel/internal/testutil"
)

// fixture wires an applier over fresh source and destination roots
type fixture struct {
	srcRoot string
	dstRoot string
	stats   *domain.RunStats
	applier *Applier
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		srcRoot: t.TempDir(),
		dstRoot: t.TempDir(),
		stats:   domain.NewRunStats(),
	}
	f.applier = New(f.srcRoot, f.dstRoot, opts, fingerprint.NewDefaultCalculator(), f.stats, nil)
	return f
}

// copyAction builds a copy action for a file already written under the
// source root
func (f *fixture) copyAction(t *testing.T, path, content string) domain.SyncAction {
	t.Helper()
	full := filepath.Join(f.srcRoot, filepath.FromSlash(path))
	fi, err := os.Stat(full)
	if err != nil {
		t.Fatalf("stat source %s: %v", path, err)
	}
	fp := fingerprintOf(t, content)
	return domain.SyncAction{
		Type: domain.ActionCopy,
		Path: path,
		Size: fi.Size(),
		Source: &domain.FingerprintedFile{
			FileRecord: domain.FileRecord{
				Path:    path,
				Size:    fi.Size(),
				ModTime: fi.ModTime(),
				Mode:    uint32(fi.Mode().Perm()),
				Side:    domain.SideSource,
			},
			Fingerprint: fp,
			GroupKey:    fingerprint.GroupKey(fp),
		},
	}
}

func TestApply_CopyNewFile(t *testing.T) {
	f := newFixture(t, Options{})
	testutil.WriteFile(t, f.srcRoot, "sub/new.txt", "fresh bytes")

	err := f.applier.Apply(context.Background(), f.copyAction(t, "sub/new.txt", "fresh bytes"))
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(f.dstRoot, "sub", "new.txt"))
	if err != nil {
		t.Fatalf("destination missing: %v", err)
	}
	if string(got) != "fresh bytes" {
		t.Errorf("content = %q, want %q", got, "fresh bytes")
	}

	snap := f.stats.Snapshot()
	if snap.FilesCopied != 1 || snap.BytesCopied != 11 {
		t.Errorf("stats = %+v, want 1 copy of 11 bytes", snap)
	}
}

func TestApply_CopyWithVerify(t *testing.T) {
	f := newFixture(t, Options{Verify: true})
	testutil.WriteFile(t, f.srcRoot, "checked.txt", "verify me")

	err := f.applier.Apply(context.Background(), f.copyAction(t, "checked.txt", "verify me"))
	if err != nil {
		t.Fatalf("Apply with verify failed: %v", err)
	}
}

func TestApply_VerifyMismatchFails(t *testing.T) {
	f := newFixture(t, Options{Verify: true})
	testutil.WriteFile(t, f.srcRoot, "changed.txt", "actual content")

	// Fingerprint claims different content than the source file holds, as
	// if the file changed between fingerprinting and copy.
	action := f.copyAction(t, "changed.txt", "stale fingerprint basis")

	err := f.applier.Apply(context.Background(), action)
	if !errors.Is(err, domain.ErrVerifyMismatch) {
		t.Fatalf("err = %v, want ErrVerifyMismatch", err)
	}
	if _, err := os.Stat(filepath.Join(f.dstRoot, "changed.txt")); !os.IsNotExist(err) {
		t.Error("destination finalized despite verify failure")
	}
	if f.stats.Snapshot().FilesCopied != 0 {
		t.Error("failed copy counted as completed")
	}
}

func TestApply_CopySourceMissing(t *testing.T) {
	f := newFixture(t, Options{})
	action := domain.SyncAction{Type: domain.ActionCopy, Path: "ghost.txt"}

	if err := f.applier.Apply(context.Background(), action); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestApply_Rename(t *testing.T) {
	f := newFixture(t, Options{})
	testutil.WriteFile(t, f.dstRoot, "old-name.txt", "moved bytes")

	err := f.applier.Apply(context.Background(), domain.SyncAction{
		Type:    domain.ActionRename,
		Path:    "sub/new-name.txt",
		OldPath: "old-name.txt",
		Size:    11,
	})
	if err != nil {
		t.Fatalf("Apply rename failed: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(f.dstRoot, "sub", "new-name.txt"))
	if err != nil {
		t.Fatalf("renamed file missing: %v", err)
	}
	if string(got) != "moved bytes" {
		t.Errorf("content = %q, want %q", got, "moved bytes")
	}
	if _, err := os.Stat(filepath.Join(f.dstRoot, "old-name.txt")); !os.IsNotExist(err) {
		t.Error("old path still exists after rename")
	}

	snap := f.stats.Snapshot()
	if snap.FilesRenamed != 1 || snap.BytesSaved != 11 {
		t.Errorf("stats = %+v, want 1 rename saving 11 bytes", snap)
	}
	if snap.BytesCopied != 0 {
		t.Errorf("rename transferred %d bytes, want 0", snap.BytesCopied)
	}
}

func TestApply_Delete(t *testing.T) {
	f := newFixture(t, Options{})
	testutil.WriteFile(t, f.dstRoot, "extraneous.txt", "x")

	err := f.applier.Apply(context.Background(), domain.SyncAction{
		Type: domain.ActionDelete,
		Path: "extraneous.txt",
	})
	if err != nil {
		t.Fatalf("Apply delete failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.dstRoot, "extraneous.txt")); !os.IsNotExist(err) {
		t.Error("file still exists after delete")
	}
	if f.stats.Snapshot().FilesDeleted != 1 {
		t.Error("delete not counted")
	}
}

func TestApply_DeleteAlreadyGone(t *testing.T) {
	f := newFixture(t, Options{})

	err := f.applier.Apply(context.Background(), domain.SyncAction{
		Type: domain.ActionDelete,
		Path: "never-existed.txt",
	})
	if err != nil {
		t.Fatalf("delete of a missing file should succeed: %v", err)
	}
}

func TestApply_DeletePrunesEmptyAncestors(t *testing.T) {
	f := newFixture(t, Options{PruneEmptyDirs: true})
	testutil.WriteFile(t, f.dstRoot, "a/b/only.txt", "x")

	err := f.applier.Apply(context.Background(), domain.SyncAction{
		Type: domain.ActionDelete,
		Path: "a/b/only.txt",
	})
	if err != nil {
		t.Fatalf("Apply delete failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(f.dstRoot, "a")); !os.IsNotExist(err) {
		t.Error("empty ancestors not pruned")
	}
	if _, err := os.Stat(f.dstRoot); err != nil {
		t.Error("destination root must never be pruned")
	}
}

func TestApply_DeleteLeavesNonEmptyAncestors(t *testing.T) {
	f := newFixture(t, Options{PruneEmptyDirs: true})
	testutil.WriteTree(t, f.dstRoot, map[string]string{
		"a/doomed.txt":  "x",
		"a/sibling.txt": "y",
	})

	err := f.applier.Apply(context.Background(), domain.SyncAction{
		Type: domain.ActionDelete,
		Path: "a/doomed.txt",
	})
	if err != nil {
		t.Fatalf("Apply delete failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.dstRoot, "a", "sibling.txt")); err != nil {
		t.Error("pruning removed a non-empty directory")
	}
}

func TestApply_Skip(t *testing.T) {
	f := newFixture(t, Options{})

	err := f.applier.Apply(context.Background(), domain.SyncAction{
		Type: domain.ActionSkip,
		Path: "same.txt",
	})
	if err != nil {
		t.Fatalf("Apply skip failed: %v", err)
	}
	if f.stats.Snapshot().FilesSkipped != 1 {
		t.Error("skip not counted")
	}
}

func TestApply_PreserveTimes(t *testing.T) {
	f := newFixture(t, Options{PreserveTimes: true})
	full := testutil.WriteFile(t, f.srcRoot, "dated.txt", "content")

	past := time.Date(2020, 3, 14, 9, 26, 53, 0, time.UTC)
	if err := os.Chtimes(full, past, past); err != nil {
		t.Fatalf("chtimes failed: %v", err)
	}

	err := f.applier.Apply(context.Background(), f.copyAction(t, "dated.txt", "content"))
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	fi, err := os.Stat(filepath.Join(f.dstRoot, "dated.txt"))
	if err != nil {
		t.Fatalf("stat destination: %v", err)
	}
	if !fi.ModTime().Equal(past) {
		t.Errorf("mod time = %v, want %v", fi.ModTime(), past)
	}
}

func TestApply_PreserveMode(t *testing.T) {
	f := newFixture(t, Options{PreserveMode: true})
	full := testutil.WriteFile(t, f.srcRoot, "exec.sh", "#!/bin/sh\n")
	if err := os.Chmod(full, 0755); err != nil {
		t.Fatalf("chmod failed: %v", err)
	}

	err := f.applier.Apply(context.Background(), f.copyAction(t, "exec.sh", "#!/bin/sh\n"))
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	fi, err := os.Stat(filepath.Join(f.dstRoot, "exec.sh"))
	if err != nil {
		t.Fatalf("stat destination: %v", err)
	}
	if fi.Mode().Perm() != 0755 {
		t.Errorf("mode = %o, want 0755", fi.Mode().Perm())
	}
}

func TestApply_UnknownActionType(t *testing.T) {
	f := newFixture(t, Options{})
	err := f.applier.Apply(context.Background(), domain.SyncAction{Type: "bogus"})
	if err == nil {
		t.Fatal("expected error for unknown action type")
	}
}
