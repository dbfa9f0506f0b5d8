// Package lifecycle orchestrates install, status, rollback, and
// cleanup across the four footprints. Failure policy is best-effort:
// one footprint failing is recorded in the returned report and the
// remaining footprints are still attempted. Only a privilege
// precondition aborts an operation outright.
package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/EsKaye/LilithOS-KernalInit/internal/backup"
	"github.com/EsKaye/LilithOS-KernalInit/internal/footprint"
	"github.com/EsKaye/LilithOS-KernalInit/internal/hostenv"
	"github.com/EsKaye/LilithOS-KernalInit/internal/registry"
	"github.com/EsKaye/LilithOS-KernalInit/pkg/types"
)

// Controller owns the footprint set for one run.
type Controller struct {
	reg        *registry.Registry
	backups    *backup.Manager
	env        hostenv.Env
	cfg        types.Config
	log        *slog.Logger
	footprints []footprint.Footprint
}

// New wires a controller over the four standard footprints, in install
// order.
func New(reg *registry.Registry, backups *backup.Manager, env hostenv.Env, cfg types.Config, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	deps := footprint.Deps{
		Registry: reg,
		Backups:  backups,
		Env:      env,
		Config:   cfg,
		Log:      log,
	}
	return &Controller{
		reg:     reg,
		backups: backups,
		env:     env,
		cfg:     cfg,
		log:     log,
		footprints: []footprint.Footprint{
			footprint.NewTag(deps),
			footprint.NewService(deps),
			footprint.NewLogInject(deps),
			footprint.NewReportForge(deps),
		},
	}
}

// Footprints exposes the ordered footprint set.
func (c *Controller) Footprints() []footprint.Footprint {
	return c.footprints
}

// InstallAll snapshots and applies every footprint in install order.
// The privilege check runs once up front; everything after that is
// best-effort with per-component outcomes in the report.
func (c *Controller) InstallAll(ctx context.Context) (*types.Report, error) {
	if !c.env.Privileged() {
		return nil, types.ErrNotPrivileged
	}

	report := c.newReport("install")
	defer c.finish(report)

	for _, fp := range c.footprints {
		snap, err := c.backups.Snapshot(fp.ID(), fp.Selector())
		if err != nil {
			if _, partial := types.AsPartialFailure(err); !partial {
				report.Add(fp.ID(), types.OutcomeFailed, err)
				c.log.Warn("snapshot failed, skipping component", "component", fp.ID(), "error", err)
				continue
			}
			// A partial snapshot still protects what it captured.
			c.log.Warn("partial snapshot", "component", fp.ID(), "error", err)
		}

		rec, err := fp.Apply(ctx, snap.SnapshotID)
		if err != nil {
			report.Add(fp.ID(), types.OutcomeFailed, err)
			c.log.Warn("apply failed, continuing", "component", fp.ID(), "error", err)
			c.dropUnreferencedSnapshot(fp.ID(), snap.SnapshotID)
			continue
		}
		if rec.BackupRef != snap.SnapshotID {
			// Idempotent no-op apply keeps its original snapshot; drop
			// the fresh, unused one.
			if rmErr := c.backups.Remove(snap.SnapshotID); rmErr != nil {
				c.log.Warn("removing unused snapshot", "snapshot", snap.SnapshotID, "error", rmErr)
			}
		}
		report.Add(fp.ID(), types.OutcomeOK, nil)
		c.log.Info("component installed", "component", fp.ID(), "correlation_id", rec.CorrelationID)
	}
	return report, nil
}

// Status verifies every footprint. Read-only: no privilege gate.
func (c *Controller) Status() (map[types.ComponentID]types.VerifyState, error) {
	states := make(map[types.ComponentID]types.VerifyState, len(c.footprints))
	for _, fp := range c.footprints {
		state, err := fp.Verify()
		if err != nil {
			// A verify error still yields a state; surface it in logs.
			c.log.Warn("verify error", "component", fp.ID(), "error", err)
		}
		states[fp.ID()] = state
	}
	return states, nil
}

// RollbackAll rolls every footprint back in reverse install order, so
// the background loops stop before the one-shot footprints' artifacts
// are restored. Partial stops and partial restores are degraded
// outcomes, not aborts.
func (c *Controller) RollbackAll(ctx context.Context) (*types.Report, error) {
	if !c.env.Privileged() {
		return nil, types.ErrNotPrivileged
	}

	report := c.newReport("rollback")
	defer c.finish(report)

	for i := len(c.footprints) - 1; i >= 0; i-- {
		fp := c.footprints[i]
		err := fp.Rollback(ctx)
		switch {
		case err == nil:
			report.Add(fp.ID(), types.OutcomeOK, nil)
		case errors.Is(err, types.ErrPartialStop):
			report.Add(fp.ID(), types.OutcomeDegraded, err)
			c.log.Warn("rollback degraded", "component", fp.ID(), "error", err)
		default:
			if _, partial := types.AsPartialFailure(err); partial {
				report.Add(fp.ID(), types.OutcomeDegraded, err)
				c.log.Warn("rollback degraded", "component", fp.ID(), "error", err)
				continue
			}
			report.Add(fp.ID(), types.OutcomeFailed, err)
			c.log.Warn("rollback failed, continuing", "component", fp.ID(), "error", err)
		}
	}
	return report, nil
}

// CleanupAll destructively removes artifacts and snapshots in reverse
// install order, without restore.
func (c *Controller) CleanupAll(ctx context.Context) (*types.Report, error) {
	if !c.env.Privileged() {
		return nil, types.ErrNotPrivileged
	}

	report := c.newReport("cleanup")
	defer c.finish(report)

	for i := len(c.footprints) - 1; i >= 0; i-- {
		fp := c.footprints[i]
		if err := fp.Cleanup(); err != nil {
			report.Add(fp.ID(), types.OutcomeFailed, err)
			c.log.Warn("cleanup failed, continuing", "component", fp.ID(), "error", err)
			continue
		}
		report.Add(fp.ID(), types.OutcomeOK, nil)
	}
	return report, nil
}

// StopLoops stops any running background loops without touching
// installed state. Used on process shutdown.
func (c *Controller) StopLoops() {
	for i := len(c.footprints) - 1; i >= 0; i-- {
		s, ok := c.footprints[i].(interface{ StopLoop(time.Duration) error })
		if !ok {
			continue
		}
		if err := s.StopLoop(c.cfg.StopGrace); err != nil {
			c.log.Warn("loop not confirmed stopped at shutdown",
				"component", c.footprints[i].ID(), "error", err)
		}
	}
}

// dropUnreferencedSnapshot removes the fresh snapshot unless the
// component's record points at it. Apply is not atomic: an install that
// failed midway records a failed status carrying the snapshot ref, and
// that snapshot must survive so rollback can undo the partial mutation.
func (c *Controller) dropUnreferencedSnapshot(id types.ComponentID, snapshotID string) {
	if rec, err := c.reg.Get(id); err == nil && rec.BackupRef == snapshotID {
		return
	}
	if err := c.backups.Remove(snapshotID); err != nil {
		c.log.Warn("removing unused snapshot", "snapshot", snapshotID, "error", err)
	}
}

func (c *Controller) newReport(op string) *types.Report {
	return &types.Report{Operation: op, StartedAt: c.env.Clock.Now().UTC()}
}

func (c *Controller) finish(r *types.Report) {
	r.FinishedAt = c.env.Clock.Now().UTC()
}
