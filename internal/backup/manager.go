// Package backup snapshots host-state fragments before a footprint
// mutates them and restores them afterwards. Snapshots are immutable
// once captured, addressed by an id fixed at snapshot time, and only
// ever removed by explicit cleanup. Restore attempts every resource
// independently and reports the failing subset instead of aborting.
package backup

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/EsKaye/LilithOS-KernalInit/internal/fsutil"
	"github.com/EsKaye/LilithOS-KernalInit/internal/hostenv"
	"github.com/EsKaye/LilithOS-KernalInit/pkg/types"
)

// Entry records the pre-mutation state of one resource.
type Entry struct {
	// Path is the absolute host path the entry describes.
	Path string `json:"path"`
	// IsDir marks directory entries; they carry no payload.
	IsDir bool `json:"is_dir"`
	// Existed records whether the resource existed at capture time.
	// Restore removes resources that did not.
	Existed bool `json:"existed"`
	// Stored is the payload file name under the snapshot's files/
	// directory, empty for directories and absent resources.
	Stored string `json:"stored,omitempty"`
	// SHA256 of the captured payload, for idempotent restore.
	SHA256 string `json:"sha256,omitempty"`
	// Mode is the captured permission bits.
	Mode fs.FileMode `json:"mode,omitempty"`
}

// Snapshot is the manifest of one capture.
type Snapshot struct {
	SnapshotID  string            `json:"snapshot_id"`
	ComponentID types.ComponentID `json:"component_id"`
	CapturedAt  time.Time         `json:"captured_at"`
	Entries     []Entry           `json:"entries"`
}

// Manager owns the snapshot store under <dataDir>/backups.
type Manager struct {
	root  string
	clock hostenv.Clock
	log   *slog.Logger
}

// NewManager returns a manager rooted at dataDir.
func NewManager(dataDir string, clock hostenv.Clock, log *slog.Logger) *Manager {
	if clock == nil {
		clock = hostenv.SystemClock{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Manager{root: filepath.Join(dataDir, "backups"), clock: clock, log: log}
}

func (m *Manager) snapshotDir(id string) string {
	return filepath.Join(m.root, id)
}

func (m *Manager) manifestPath(id string) string {
	return filepath.Join(m.snapshotDir(id), "manifest.json")
}

// Snapshot captures the current state of every resource in selector.
// Each selector path may name a file or a directory; missing resources
// are recorded so restore can remove whatever the footprint creates in
// their place. Per-resource failures are collected into a
// types.PartialFailure; the snapshot still covers everything that
// succeeded.
func (m *Manager) Snapshot(component types.ComponentID, selector []string) (*Snapshot, error) {
	snap := &Snapshot{
		SnapshotID:  newSnapshotID(),
		ComponentID: component,
		CapturedAt:  m.clock.Now().UTC(),
	}
	filesDir := filepath.Join(m.snapshotDir(snap.SnapshotID), "files")
	if err := os.MkdirAll(filesDir, 0755); err != nil {
		return nil, fmt.Errorf("creating snapshot dir: %w", err)
	}

	var failed []types.ResourceFailure
	for _, path := range selector {
		if err := m.captureResource(snap, filesDir, path); err != nil {
			failed = append(failed, types.ResourceFailure{Path: path, Err: err.Error()})
		}
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	if err := fsutil.WriteFileAtomic(m.manifestPath(snap.SnapshotID), data, 0644); err != nil {
		return nil, fmt.Errorf("writing manifest: %w", err)
	}

	if len(failed) > 0 {
		return snap, &types.PartialFailure{Op: "snapshot", Failed: failed}
	}
	return snap, nil
}

// captureResource appends entries for path: a single file entry, or a
// directory entry plus one entry per contained file.
func (m *Manager) captureResource(snap *Snapshot, filesDir, path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		snap.Entries = append(snap.Entries, Entry{Path: path, Existed: false})
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	if !info.IsDir() {
		return m.captureFile(snap, filesDir, path, info.Mode().Perm())
	}

	snap.Entries = append(snap.Entries, Entry{Path: path, IsDir: true, Existed: true, Mode: info.Mode().Perm()})
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == path {
			return nil
		}
		if d.IsDir() {
			dirInfo, err := d.Info()
			if err != nil {
				return err
			}
			snap.Entries = append(snap.Entries, Entry{Path: p, IsDir: true, Existed: true, Mode: dirInfo.Mode().Perm()})
			return nil
		}
		fileInfo, err := d.Info()
		if err != nil {
			return err
		}
		return m.captureFile(snap, filesDir, p, fileInfo.Mode().Perm())
	})
}

func (m *Manager) captureFile(snap *Snapshot, filesDir, path string, mode fs.FileMode) error {
	stored := fmt.Sprintf("%06d", len(snap.Entries))
	if err := fsutil.CopyFile(path, filepath.Join(filesDir, stored)); err != nil {
		return err
	}
	sum, err := fsutil.HashFile(path)
	if err != nil {
		return err
	}
	snap.Entries = append(snap.Entries, Entry{
		Path:    path,
		Existed: true,
		Stored:  stored,
		SHA256:  sum,
		Mode:    mode,
	})
	return nil
}

// Load reads the manifest for snapshotID.
func (m *Manager) Load(snapshotID string) (*Snapshot, error) {
	data, err := os.ReadFile(m.manifestPath(snapshotID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, types.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("reading manifest %s: %w", snapshotID, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding manifest %s: %w", snapshotID, err)
	}
	return &snap, nil
}

// Restore puts every resource in the snapshot back to its captured
// state. The manifest's entry set is the authoritative content listing
// for every captured directory: anything found underneath one that has
// no entry was created after capture and is removed. Resources already
// in the captured state are left alone, so restoring twice is a no-op.
// Each resource is attempted independently; the failing subset comes
// back as a types.PartialFailure.
func (m *Manager) Restore(snap *Snapshot) error {
	filesDir := filepath.Join(m.snapshotDir(snap.SnapshotID), "files")

	var failed []types.ResourceFailure

	// Directories first so file restores have somewhere to land, then
	// files, then pruning of uncaptured content inside captured
	// directories, then removals of resources that did not exist at
	// capture.
	for _, e := range snap.Entries {
		if e.IsDir && e.Existed {
			if err := os.MkdirAll(e.Path, e.Mode); err != nil {
				failed = append(failed, types.ResourceFailure{Path: e.Path, Err: err.Error()})
			}
		}
	}
	for _, e := range snap.Entries {
		if e.IsDir || !e.Existed {
			continue
		}
		if err := m.restoreFile(filesDir, e); err != nil {
			failed = append(failed, types.ResourceFailure{Path: e.Path, Err: err.Error()})
		}
	}
	captured := make(map[string]bool, len(snap.Entries))
	for _, e := range snap.Entries {
		captured[e.Path] = true
	}
	for _, e := range snap.Entries {
		if !e.IsDir || !e.Existed {
			continue
		}
		if err := pruneUncaptured(e.Path, captured); err != nil {
			failed = append(failed, types.ResourceFailure{Path: e.Path, Err: err.Error()})
		}
	}
	for _, e := range snap.Entries {
		if e.Existed {
			continue
		}
		if err := removeIfPresent(e.Path); err != nil {
			failed = append(failed, types.ResourceFailure{Path: e.Path, Err: err.Error()})
		}
	}

	if len(failed) > 0 {
		return &types.PartialFailure{Op: "restore", Failed: failed}
	}
	return nil
}

// pruneUncaptured removes everything under root that has no manifest
// entry, so a footprint that wrote into a directory that predates the
// snapshot leaves no trace after restore.
func pruneUncaptured(root string, captured map[string]bool) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if p == root || captured[p] {
			return nil
		}
		if rmErr := os.RemoveAll(p); rmErr != nil {
			return rmErr
		}
		if d.IsDir() {
			return fs.SkipDir
		}
		return nil
	})
}

func (m *Manager) restoreFile(filesDir string, e Entry) error {
	if fsutil.FileExists(e.Path) {
		sum, err := fsutil.HashFile(e.Path)
		if err == nil && sum == e.SHA256 {
			return nil // already in captured state
		}
	}
	if err := fsutil.CopyFile(filepath.Join(filesDir, e.Stored), e.Path); err != nil {
		return err
	}
	return os.Chmod(e.Path, e.Mode)
}

// removeIfPresent deletes path whether it is now a file or a directory.
func removeIfPresent(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return os.RemoveAll(path)
}

// Remove deletes the snapshot's payload and manifest. Explicit cleanup
// only; nothing else garbage-collects snapshots.
func (m *Manager) Remove(snapshotID string) error {
	if snapshotID == "" {
		return nil
	}
	return os.RemoveAll(m.snapshotDir(snapshotID))
}

// List returns the ids of all stored snapshots.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}

// newSnapshotID generates a UUID v7, falling back to v4.
func newSnapshotID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
