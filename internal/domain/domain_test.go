package domain

import (
	"strings"
	"sync"
	"testing"
)

func TestRunStats_ConcurrentUpdates(t *testing.T) {
	stats := NewRunStats()
	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				stats.AddBytesCopied(10)
				stats.IncCopied()
			}
		}()
	}
	wg.Wait()

	snap := stats.Snapshot()
	if snap.BytesCopied != 16000 {
		t.Errorf("BytesCopied = %d, want 16000", snap.BytesCopied)
	}
	if snap.FilesCopied != 1600 {
		t.Errorf("FilesCopied = %d, want 1600", snap.FilesCopied)
	}
}

func TestRunStats_HasFailures(t *testing.T) {
	stats := NewRunStats()
	if stats.HasFailures() {
		t.Error("fresh stats report failures")
	}
	stats.IncFailed()
	if !stats.HasFailures() {
		t.Error("failure not reported")
	}
}

func TestSyncPlan_CalculateStats(t *testing.T) {
	plan := &SyncPlan{
		Actions: []SyncAction{
			{Type: ActionSkip, Path: "a", Size: 10},
			{Type: ActionCopy, Path: "b", Size: 100},
			{Type: ActionCopy, Path: "c", Size: 50},
			{Type: ActionRename, Path: "d", OldPath: "old-d", Size: 200},
			{Type: ActionDelete, Path: "e", Size: 5},
		},
	}
	plan.CalculateStats()

	s := plan.Stats
	if s.TotalActions != 5 {
		t.Errorf("TotalActions = %d, want 5", s.TotalActions)
	}
	if s.FilesToCopy != 2 || s.BytesToCopy != 150 {
		t.Errorf("copies = %d/%d bytes, want 2/150", s.FilesToCopy, s.BytesToCopy)
	}
	if s.FilesToRename != 1 || s.BytesRenamed != 200 {
		t.Errorf("renames = %d/%d bytes, want 1/200", s.FilesToRename, s.BytesRenamed)
	}
	if s.FilesToDelete != 1 || s.FilesToSkip != 1 {
		t.Errorf("deletes/skips = %d/%d, want 1/1", s.FilesToDelete, s.FilesToSkip)
	}
}

func TestSyncPlan_InSync(t *testing.T) {
	plan := &SyncPlan{
		Actions: []SyncAction{{Type: ActionSkip, Path: "a"}},
	}
	plan.CalculateStats()
	if !plan.InSync() {
		t.Error("skip-only plan should be in sync")
	}

	plan.Actions = append(plan.Actions, SyncAction{Type: ActionCopy, Path: "b"})
	plan.CalculateStats()
	if plan.InSync() {
		t.Error("plan with a copy is not in sync")
	}
}

func TestFingerprint(t *testing.T) {
	var zero Fingerprint
	if !zero.IsZero() {
		t.Error("zero fingerprint not detected")
	}

	fp := Fingerprint{0xde, 0xad, 0xbe, 0xef}
	if fp.IsZero() {
		t.Error("nonzero fingerprint reported zero")
	}
	s := fp.String()
	if !strings.HasPrefix(s, "deadbeef") || len(s) != 64 {
		t.Errorf("String() = %s", s)
	}
}

func TestSide_String(t *testing.T) {
	if SideSource.String() != "source" || SideDest.String() != "dest" {
		t.Error("side names wrong")
	}
}
