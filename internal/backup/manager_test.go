package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/EsKaye/LilithOS-KernalInit/pkg/types"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	m := NewManager(dir, fixedClock{t: time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)}, nil)
	return m, dir
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func read(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile %s: %v", path, err)
	}
	return string(data)
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	m, dir := newTestManager(t)
	target := filepath.Join(dir, "host", "marker")
	write(t, target, "original")

	snap, err := m.Snapshot(types.ComponentTag, []string{target})
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.SnapshotID == "" {
		t.Fatal("snapshot id is empty")
	}
	if snap.CapturedAt.IsZero() {
		t.Error("captured_at is zero")
	}

	// Mutate, then restore.
	write(t, target, "mutated")
	if err := m.Restore(snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if got := read(t, target); got != "original" {
		t.Errorf("restored content = %q, want %q", got, "original")
	}
}

func TestRestoreRemovesCreatedResources(t *testing.T) {
	m, dir := newTestManager(t)
	absentFile := filepath.Join(dir, "host", "created-later")

	snap, err := m.Snapshot(types.ComponentTag, []string{absentFile})
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	// Footprint creates the file after the snapshot.
	write(t, absentFile, "installed artifact")

	if err := m.Restore(snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if _, err := os.Stat(absentFile); !os.IsNotExist(err) {
		t.Errorf("restore left created resource in place: %v", err)
	}
}

func TestRestoreIsIdempotent(t *testing.T) {
	m, dir := newTestManager(t)
	target := filepath.Join(dir, "host", "f")
	write(t, target, "v1")

	snap, err := m.Snapshot(types.ComponentLogInject, []string{target})
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	write(t, target, "v2")

	if err := m.Restore(snap); err != nil {
		t.Fatalf("first Restore: %v", err)
	}
	if err := m.Restore(snap); err != nil {
		t.Fatalf("second Restore: %v", err)
	}
	if got := read(t, target); got != "v1" {
		t.Errorf("content after double restore = %q, want v1", got)
	}
}

func TestSnapshotDirectoryTree(t *testing.T) {
	m, dir := newTestManager(t)
	tree := filepath.Join(dir, "host", "tasks")
	write(t, filepath.Join(tree, "a.task.json"), "a")
	write(t, filepath.Join(tree, "nested", "b.task.json"), "b")

	snap, err := m.Snapshot(types.ComponentService, []string{tree})
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	// Mutate the tree: delete one file, change another, add a third.
	os.Remove(filepath.Join(tree, "a.task.json"))
	write(t, filepath.Join(tree, "nested", "b.task.json"), "changed")
	write(t, filepath.Join(tree, "c.task.json"), "new")

	if err := m.Restore(snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if got := read(t, filepath.Join(tree, "a.task.json")); got != "a" {
		t.Errorf("a.task.json = %q, want a", got)
	}
	if got := read(t, filepath.Join(tree, "nested", "b.task.json")); got != "b" {
		t.Errorf("b.task.json = %q, want b", got)
	}
	// c.task.json appeared after capture; restore prunes it.
	if _, err := os.Stat(filepath.Join(tree, "c.task.json")); !os.IsNotExist(err) {
		t.Errorf("uncaptured file survived restore: %v", err)
	}
}

func TestRestorePrunesUncapturedFiles(t *testing.T) {
	m, dir := newTestManager(t)
	tree := filepath.Join(dir, "host", "reports")
	bystander := filepath.Join(tree, "notes.txt")
	write(t, bystander, "user data")

	snap, err := m.Snapshot(types.ComponentReportForge, []string{tree})
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	// Artifacts land inside the pre-existing directory after capture.
	write(t, filepath.Join(tree, "forged-1.crash"), "x")
	write(t, filepath.Join(tree, "sub", "forged-2.crash"), "y")

	if err := m.Restore(snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if got := read(t, bystander); got != "user data" {
		t.Errorf("captured file = %q, want unchanged", got)
	}
	if _, err := os.Stat(filepath.Join(tree, "forged-1.crash")); !os.IsNotExist(err) {
		t.Errorf("uncaptured file survived restore: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tree, "sub")); !os.IsNotExist(err) {
		t.Errorf("uncaptured subtree survived restore: %v", err)
	}
	if _, err := os.Stat(tree); err != nil {
		t.Errorf("captured directory removed by restore: %v", err)
	}
}

func TestRestorePartialFailure(t *testing.T) {
	m, dir := newTestManager(t)
	good := filepath.Join(dir, "host", "good")
	write(t, good, "ok")

	snap, err := m.Snapshot(types.ComponentTag, []string{good})
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	// Corrupt the stored payload so restore of this entry fails, then
	// add a second entry that restores cleanly.
	for i := range snap.Entries {
		snap.Entries[i].Stored = "missing-payload"
		snap.Entries[i].SHA256 = "0000"
	}
	other := filepath.Join(dir, "host", "other")
	snap.Entries = append(snap.Entries, Entry{Path: other, Existed: false})
	write(t, other, "should be removed")
	write(t, good, "mutated")

	err = m.Restore(snap)
	pf, ok := types.AsPartialFailure(err)
	if !ok {
		t.Fatalf("Restore = %v, want PartialFailure", err)
	}
	if len(pf.Failed) != 1 || pf.Failed[0].Path != good {
		t.Errorf("failed subset = %+v, want [%s]", pf.Failed, good)
	}
	// The independent resource was still restored.
	if _, err := os.Stat(other); !os.IsNotExist(err) {
		t.Error("independent resource was not restored")
	}
}

func TestLoadAndRemove(t *testing.T) {
	m, dir := newTestManager(t)
	target := filepath.Join(dir, "host", "f")
	write(t, target, "x")

	snap, err := m.Snapshot(types.ComponentTag, []string{target})
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	loaded, err := m.Load(snap.SnapshotID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.SnapshotID != snap.SnapshotID || loaded.ComponentID != types.ComponentTag {
		t.Errorf("Load = %+v", loaded)
	}

	ids, err := m.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 1 || ids[0] != snap.SnapshotID {
		t.Errorf("List = %v", ids)
	}

	if err := m.Remove(snap.SnapshotID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := m.Load(snap.SnapshotID); err != types.ErrSnapshotNotFound {
		t.Errorf("Load after Remove = %v, want ErrSnapshotNotFound", err)
	}

	// Removing an empty ref is a no-op.
	if err := m.Remove(""); err != nil {
		t.Errorf("Remove(\"\") = %v", err)
	}
}
