// Package footprint implements the four persistence footprints behind
// one contract: apply, verify, rollback, cleanup. Apply is idempotent
// and drift-repairing; rollback stops any background loop before
// restoring, so a loop never recreates an artifact the restore step is
// removing.
package footprint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/EsKaye/LilithOS-KernalInit/internal/backup"
	"github.com/EsKaye/LilithOS-KernalInit/internal/hostenv"
	"github.com/EsKaye/LilithOS-KernalInit/internal/registry"
	"github.com/EsKaye/LilithOS-KernalInit/pkg/types"
)

// Footprint is the contract every variant satisfies.
type Footprint interface {
	// ID names the component.
	ID() types.ComponentID
	// Selector lists the host resources the footprint mutates, for
	// the pre-apply snapshot.
	Selector() []string
	// Apply installs the footprint. Idempotent: with an existing
	// record and healthy host state it returns the record unchanged.
	// backupRef names the snapshot captured immediately before this
	// call; an existing record keeps its original ref. An install that
	// fails midway leaves a failed-status record carrying the snapshot
	// ref, so rollback can undo whatever was mutated.
	Apply(ctx context.Context, backupRef string) (*types.PersistenceRecord, error)
	// Verify compares recorded state against the host.
	Verify() (types.VerifyState, error)
	// Rollback stops any loop, restores the snapshot, and clears the
	// registry entry, in that order.
	Rollback(ctx context.Context) error
	// Cleanup removes artifacts destructively, without restore.
	Cleanup() error
}

// Deps bundles the collaborators shared by all variants.
type Deps struct {
	Registry *registry.Registry
	Backups  *backup.Manager
	Env      hostenv.Env
	Config   types.Config
	Log      *slog.Logger
}

func (d *Deps) logger() *slog.Logger {
	if d.Log == nil {
		return slog.Default()
	}
	return d.Log
}

// base carries the shared lifecycle mechanics; each variant supplies
// its artifact operations on top.
type base struct {
	deps Deps
	id   types.ComponentID
}

// applyCommon implements the idempotence and drift-repair contract
// around a variant's install function. healthy reports whether the
// variant's artifacts match corr; install (re)writes them, including
// the first artifact of any background loop.
func (b *base) applyCommon(
	ctx context.Context,
	backupRef string,
	healthy func(corr string) (bool, error),
	install func(ctx context.Context, corr string) error,
) (*types.PersistenceRecord, error) {
	if !b.deps.Env.Privileged() {
		return nil, types.ErrNotPrivileged
	}

	corr, err := b.deps.Registry.CorrelationID()
	if err != nil {
		return nil, fmt.Errorf("correlation id: %w", err)
	}

	existing, err := b.deps.Registry.Get(b.id)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}

	if existing != nil {
		switch existing.Status {
		case types.StatusInstalled:
			ok, err := healthy(existing.CorrelationID)
			if err != nil {
				return nil, fmt.Errorf("verifying before apply: %w", err)
			}
			if ok {
				// Already installed and intact: no second mutation.
				return existing, nil
			}
			// Drifted: re-apply under the recorded correlation id and
			// keep the original pre-install snapshot ref.
			corr = existing.CorrelationID
			backupRef = existing.BackupRef
			b.deps.logger().Info("repairing drifted footprint", "component", b.id)
		case types.StatusFailed:
			// Retrying an aborted install. The recorded snapshot was
			// taken before the first mutation; keep its ref.
			corr = existing.CorrelationID
			backupRef = existing.BackupRef
			b.deps.logger().Info("retrying failed footprint", "component", b.id)
		}
	}

	if err := install(ctx, corr); err != nil {
		b.recordFailedApply(existing, corr, backupRef)
		return nil, fmt.Errorf("applying %s: %w", b.id, err)
	}

	rec := &types.PersistenceRecord{
		ComponentID:   b.id,
		CorrelationID: corr,
		InstalledAt:   b.deps.Env.Clock.Now().UTC(),
		BackupRef:     backupRef,
		Status:        types.StatusInstalled,
	}
	if existing != nil && existing.Status == types.StatusInstalled {
		// Idempotent repair keeps the original install time.
		rec.InstalledAt = existing.InstalledAt
	}
	if err := b.deps.Registry.Put(rec); err != nil {
		return nil, fmt.Errorf("recording %s: %w", b.id, err)
	}
	return rec, nil
}

// recordFailedApply persists a failed-status record so a later rollback
// or cleanup can still find the snapshot covering whatever the aborted
// install mutated. An installed record is left in place; its snapshot
// ref already covers the component.
func (b *base) recordFailedApply(existing *types.PersistenceRecord, corr, backupRef string) {
	if existing != nil && existing.Status == types.StatusInstalled {
		return
	}
	rec := &types.PersistenceRecord{
		ComponentID:   b.id,
		CorrelationID: corr,
		InstalledAt:   b.deps.Env.Clock.Now().UTC(),
		BackupRef:     backupRef,
		Status:        types.StatusFailed,
	}
	if err := b.deps.Registry.Put(rec); err != nil {
		b.deps.logger().Warn("recording failed apply", "component", b.id, "error", err)
	}
}

// verifyCommon maps the registry record plus the variant's artifact
// check onto the three verify states. A missing record means
// NotInstalled regardless of stray artifacts.
func (b *base) verifyCommon(healthy func(corr string) (bool, error)) (types.VerifyState, error) {
	rec, err := b.deps.Registry.Get(b.id)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return types.NotInstalled, nil
		}
		return types.NotInstalled, err
	}
	if rec.Status != types.StatusInstalled {
		return types.NotInstalled, nil
	}
	ok, err := healthy(rec.CorrelationID)
	if err != nil {
		return types.InstalledButDrifted, err
	}
	if !ok {
		return types.InstalledButDrifted, nil
	}
	return types.InstalledAndHealthy, nil
}

// rollbackCommon stops the loop, restores the pre-install snapshot,
// and clears the registry entry, in that order. A loop that misses the
// stop grace is reported as types.ErrPartialStop but does not block
// the restore. A partial restore comes back as a types.PartialFailure
// after the registry entry is still cleared.
func (b *base) rollbackCommon(ctx context.Context, stopLoop func(grace time.Duration) error) error {
	if !b.deps.Env.Privileged() {
		return types.ErrNotPrivileged
	}

	rec, err := b.deps.Registry.Get(b.id)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil // nothing installed
		}
		return err
	}

	var stopErr error
	if stopLoop != nil {
		stopErr = stopLoop(b.deps.Config.StopGrace)
		if stopErr != nil {
			b.deps.logger().Warn("loop not confirmed stopped, continuing rollback",
				"component", b.id, "error", stopErr)
		}
	}

	var restoreErr error
	if rec.BackupRef != "" {
		snap, err := b.deps.Backups.Load(rec.BackupRef)
		if err != nil {
			restoreErr = err
		} else {
			restoreErr = b.deps.Backups.Restore(snap)
		}
	}

	if err := b.deps.Registry.Delete(b.id); err != nil {
		return fmt.Errorf("clearing %s: %w", b.id, err)
	}

	if restoreErr != nil {
		return restoreErr
	}
	return stopErr
}

// cleanupCommon stops the loop, removes artifacts destructively,
// removes the snapshot, and clears the registry entry. Used when no
// restore is wanted.
func (b *base) cleanupCommon(stopLoop func(grace time.Duration) error, remove func(corr string) error) error {
	if !b.deps.Env.Privileged() {
		return types.ErrNotPrivileged
	}

	rec, err := b.deps.Registry.Get(b.id)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return err
	}

	if stopLoop != nil {
		if err := stopLoop(b.deps.Config.StopGrace); err != nil {
			b.deps.logger().Warn("loop not confirmed stopped, continuing cleanup",
				"component", b.id, "error", err)
		}
	}

	corr := ""
	if rec != nil {
		corr = rec.CorrelationID
	}
	if err := remove(corr); err != nil {
		return fmt.Errorf("removing %s artifacts: %w", b.id, err)
	}

	if rec != nil {
		if err := b.deps.Backups.Remove(rec.BackupRef); err != nil {
			return fmt.Errorf("removing %s snapshot: %w", b.id, err)
		}
		if err := b.deps.Registry.Delete(b.id); err != nil {
			return fmt.Errorf("clearing %s: %w", b.id, err)
		}
	}
	return nil
}
