package lifecycle

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/EsKaye/LilithOS-KernalInit/internal/backup"
	"github.com/EsKaye/LilithOS-KernalInit/internal/hostenv"
	"github.com/EsKaye/LilithOS-KernalInit/internal/registry"
	"github.com/EsKaye/LilithOS-KernalInit/pkg/types"
)

func testConfig(t *testing.T) types.Config {
	t.Helper()
	return types.Config{
		DataDir:         t.TempDir(),
		LoopMinInterval: 10 * time.Millisecond,
		LoopMaxInterval: 30 * time.Millisecond,
		StopGrace:       2 * time.Second,
	}.WithDefaults()
}

func newController(t *testing.T, cfg types.Config, env hostenv.Env) *Controller {
	t.Helper()
	reg, err := registry.Open(cfg.DataDir, nil)
	if err != nil {
		t.Fatalf("registry.Open: %v", err)
	}
	t.Cleanup(func() { reg.Close() })

	c := New(reg, backup.NewManager(cfg.DataDir, env.Clock, nil), env, cfg, nil)
	t.Cleanup(c.StopLoops)
	return c
}

func TestFullLifecycleScenario(t *testing.T) {
	cfg := testConfig(t)
	c := newController(t, cfg, hostenv.NewFileEnv(cfg))
	ctx := context.Background()

	// Clean slate.
	states, err := c.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	for id, state := range states {
		if state != types.NotInstalled {
			t.Errorf("initial state[%s] = %s, want not installed", id, state)
		}
	}

	// Install everything.
	report, err := c.InstallAll(ctx)
	if err != nil {
		t.Fatalf("InstallAll: %v", err)
	}
	if len(report.Outcomes) != 4 || !report.OK() {
		t.Fatalf("install report = %+v", report)
	}
	if report.Operation != "install" || report.FinishedAt.Before(report.StartedAt) {
		t.Errorf("report metadata = %+v", report)
	}

	states, _ = c.Status()
	for id, state := range states {
		if state != types.InstalledAndHealthy {
			t.Errorf("state[%s] after install = %s, want healthy", id, state)
		}
	}

	// Roll everything back.
	report, err = c.RollbackAll(ctx)
	if err != nil {
		t.Fatalf("RollbackAll: %v", err)
	}
	if len(report.Outcomes) != 4 || !report.OK() {
		t.Fatalf("rollback report = %+v", report)
	}
	// Reverse order: loops first.
	if report.Outcomes[0].Component != types.ComponentReportForge ||
		report.Outcomes[3].Component != types.ComponentTag {
		t.Errorf("rollback order = %+v", report.Outcomes)
	}

	states, _ = c.Status()
	for id, state := range states {
		if state != types.NotInstalled {
			t.Errorf("state[%s] after rollback = %s, want not installed", id, state)
		}
	}
}

func TestInstallAllIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	c := newController(t, cfg, hostenv.NewFileEnv(cfg))
	ctx := context.Background()

	if _, err := c.InstallAll(ctx); err != nil {
		t.Fatalf("first InstallAll: %v", err)
	}
	firstRecords, err := c.reg.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	firstSnaps, _ := c.backups.List()

	report, err := c.InstallAll(ctx)
	if err != nil {
		t.Fatalf("second InstallAll: %v", err)
	}
	if !report.OK() {
		t.Fatalf("second install report = %+v", report)
	}

	secondRecords, _ := c.reg.List()
	if len(secondRecords) != len(firstRecords) {
		t.Fatalf("record count changed: %d -> %d", len(firstRecords), len(secondRecords))
	}
	for i := range firstRecords {
		if firstRecords[i] != secondRecords[i] {
			t.Errorf("record changed on re-install:\n%+v\n%+v", firstRecords[i], secondRecords[i])
		}
	}

	// No-op applies drop their unused snapshots.
	secondSnaps, _ := c.backups.List()
	if len(secondSnaps) != len(firstSnaps) {
		t.Errorf("snapshot count changed on re-install: %d -> %d", len(firstSnaps), len(secondSnaps))
	}
}

// failingTagStore refuses every mutation.
type failingTagStore struct{}

func (failingTagStore) Set(location, key, value string) error { return errors.New("tag store offline") }
func (failingTagStore) Get(location, key string) (string, error) {
	return "", hostenv.ErrTagNotFound
}
func (failingTagStore) Clear(location, key string) error { return errors.New("tag store offline") }

func TestInstallContinuesPastFailures(t *testing.T) {
	cfg := testConfig(t)
	env := hostenv.NewFileEnv(cfg)
	env.Tags = failingTagStore{}
	c := newController(t, cfg, env)

	report, err := c.InstallAll(context.Background())
	if err != nil {
		t.Fatalf("InstallAll: %v", err)
	}
	if len(report.Outcomes) != 4 {
		t.Fatalf("outcomes = %+v", report.Outcomes)
	}

	tag := report.Outcome(types.ComponentTag)
	if tag == nil || tag.Outcome != types.OutcomeFailed || tag.Error == "" {
		t.Errorf("tag outcome = %+v, want failed with error text", tag)
	}
	for _, id := range []types.ComponentID{types.ComponentService, types.ComponentLogInject, types.ComponentReportForge} {
		o := report.Outcome(id)
		if o == nil || o.Outcome != types.OutcomeOK {
			t.Errorf("outcome[%s] = %+v, want ok", id, o)
		}
	}

	states, _ := c.Status()
	if states[types.ComponentTag] != types.NotInstalled {
		t.Errorf("tag state = %s, want not installed", states[types.ComponentTag])
	}
	if states[types.ComponentService] != types.InstalledAndHealthy {
		t.Errorf("service state = %s, want healthy", states[types.ComponentService])
	}
}

// blockedLocationTags fails writes to a single location, passing
// everything else through.
type blockedLocationTags struct {
	hostenv.TagStore
	deny string
}

func (b *blockedLocationTags) Set(location, key, value string) error {
	if location == b.deny {
		return errors.New("location unwritable")
	}
	return b.TagStore.Set(location, key, value)
}

func TestFailedApplyStaysRestorable(t *testing.T) {
	cfg := testConfig(t)
	env := hostenv.NewFileEnv(cfg)
	env.Tags = &blockedLocationTags{TagStore: env.Tags, deny: cfg.TagLocations[1]}
	c := newController(t, cfg, env)
	ctx := context.Background()

	report, err := c.InstallAll(ctx)
	if err != nil {
		t.Fatalf("InstallAll: %v", err)
	}
	if o := report.Outcome(types.ComponentTag); o == nil || o.Outcome != types.OutcomeFailed {
		t.Fatalf("tag outcome = %+v, want failed", o)
	}

	// The first location was mutated before the failure; the record and
	// the snapshot covering that mutation must both survive.
	entries, err := os.ReadDir(cfg.TagLocations[0])
	if err != nil || len(entries) == 0 {
		t.Fatalf("first location not mutated: %v %v", entries, err)
	}
	rec, err := c.reg.Get(types.ComponentTag)
	if err != nil {
		t.Fatalf("Get after failed apply: %v", err)
	}
	if rec.Status != types.StatusFailed {
		t.Fatalf("record after failed apply = %+v", rec)
	}
	if _, err := c.backups.Load(rec.BackupRef); err != nil {
		t.Fatalf("snapshot for failed apply missing: %v", err)
	}

	if _, err := c.RollbackAll(ctx); err != nil {
		t.Fatalf("RollbackAll: %v", err)
	}
	if _, err := os.Stat(cfg.TagLocations[0]); !os.IsNotExist(err) {
		t.Errorf("partial mutation survived rollback: %v", err)
	}
	states, _ := c.Status()
	if states[types.ComponentTag] != types.NotInstalled {
		t.Errorf("tag state after rollback = %s, want not installed", states[types.ComponentTag])
	}
}

// unprivilegedEnv wraps a file env with a false privilege check.
func unprivilegedEnv(cfg types.Config) hostenv.Env {
	env := hostenv.NewFileEnv(cfg)
	env.Privileged = func() bool { return false }
	return env
}

func TestPreconditionFailureAbortsImmediately(t *testing.T) {
	cfg := testConfig(t)
	c := newController(t, cfg, unprivilegedEnv(cfg))
	ctx := context.Background()

	if _, err := c.InstallAll(ctx); !errors.Is(err, types.ErrNotPrivileged) {
		t.Errorf("InstallAll = %v, want ErrNotPrivileged", err)
	}
	if _, err := c.RollbackAll(ctx); !errors.Is(err, types.ErrNotPrivileged) {
		t.Errorf("RollbackAll = %v, want ErrNotPrivileged", err)
	}
	if _, err := c.CleanupAll(ctx); !errors.Is(err, types.ErrNotPrivileged) {
		t.Errorf("CleanupAll = %v, want ErrNotPrivileged", err)
	}

	// Nothing was mutated: no records, no snapshots, no tag files.
	records, _ := c.reg.List()
	if len(records) != 0 {
		t.Errorf("records = %+v, want none", records)
	}
	snaps, _ := c.backups.List()
	if len(snaps) != 0 {
		t.Errorf("snapshots = %v, want none", snaps)
	}
}

func TestCleanupAllRemovesEverything(t *testing.T) {
	cfg := testConfig(t)
	c := newController(t, cfg, hostenv.NewFileEnv(cfg))
	ctx := context.Background()

	if _, err := c.InstallAll(ctx); err != nil {
		t.Fatalf("InstallAll: %v", err)
	}

	report, err := c.CleanupAll(ctx)
	if err != nil {
		t.Fatalf("CleanupAll: %v", err)
	}
	if !report.OK() {
		t.Fatalf("cleanup report = %+v", report)
	}

	states, _ := c.Status()
	for id, state := range states {
		if state != types.NotInstalled {
			t.Errorf("state[%s] after cleanup = %s", id, state)
		}
	}
	snaps, _ := c.backups.List()
	if len(snaps) != 0 {
		t.Errorf("snapshots after cleanup = %v, want none", snaps)
	}
	if _, err := os.Stat(cfg.ReportDir); err == nil {
		entries, _ := os.ReadDir(cfg.ReportDir)
		for _, e := range entries {
			t.Errorf("report artifact survived cleanup: %s", e.Name())
		}
	}
}

func TestStatusSurvivesProcessRestart(t *testing.T) {
	cfg := testConfig(t)
	env := hostenv.NewFileEnv(cfg)

	reg, err := registry.Open(cfg.DataDir, nil)
	if err != nil {
		t.Fatalf("registry.Open: %v", err)
	}
	c := New(reg, backup.NewManager(cfg.DataDir, env.Clock, nil), env, cfg, nil)
	if _, err := c.InstallAll(context.Background()); err != nil {
		t.Fatalf("InstallAll: %v", err)
	}
	c.StopLoops()
	if err := reg.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// New process: fresh registry handle over the same data dir.
	c2 := newController(t, cfg, env)
	states, _ := c2.Status()
	for _, id := range []types.ComponentID{types.ComponentTag, types.ComponentService, types.ComponentLogInject} {
		if states[id] != types.InstalledAndHealthy {
			t.Errorf("state[%s] after restart = %s, want healthy", id, states[id])
		}
	}

	// And the second process can roll back what the first installed.
	report, err := c2.RollbackAll(context.Background())
	if err != nil {
		t.Fatalf("RollbackAll: %v", err)
	}
	if !report.OK() {
		t.Errorf("rollback report after restart = %+v", report)
	}
}
