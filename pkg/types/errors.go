package types

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared across packages.
var (
	// ErrNotFound is returned when no registry record exists for a component.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidComponent is returned for a ComponentID outside the known set.
	ErrInvalidComponent = errors.New("invalid component id")
	// ErrInvalidRecord is returned when a PersistenceRecord fails validation.
	ErrInvalidRecord = errors.New("invalid persistence record")
	// ErrRegistryClosed is returned by registry operations after Close.
	ErrRegistryClosed = errors.New("registry is closed")
	// ErrSnapshotNotFound is returned when a backup ref resolves to nothing.
	ErrSnapshotNotFound = errors.New("snapshot not found")
	// ErrNotPrivileged is the precondition failure for mutating operations.
	// It aborts the whole operation before anything is touched.
	ErrNotPrivileged = errors.New("operation requires elevated privileges")
	// ErrPartialStop means a background loop could not be confirmed stopped
	// within the grace period. Rollback proceeds anyway, treating the loop
	// as orphaned.
	ErrPartialStop = errors.New("background loop did not stop within grace period")
)

// ResourceFailure describes one resource a snapshot or restore could not
// process.
type ResourceFailure struct {
	Path string `json:"path"`
	Err  string `json:"error"`
}

// PartialFailure reports the subset of resources a backup or restore
// operation failed on. The operation as a whole is degraded, not aborted:
// every resource was attempted.
type PartialFailure struct {
	Op     string            `json:"op"` // "snapshot" or "restore"
	Failed []ResourceFailure `json:"failed"`
}

func (e *PartialFailure) Error() string {
	paths := make([]string, len(e.Failed))
	for i, f := range e.Failed {
		paths[i] = f.Path
	}
	return fmt.Sprintf("%s failed for %d resource(s): %s", e.Op, len(e.Failed), strings.Join(paths, ", "))
}

// AsPartialFailure unwraps err into a *PartialFailure if it is one.
func AsPartialFailure(err error) (*PartialFailure, bool) {
	var pf *PartialFailure
	if errors.As(err, &pf) {
		return pf, true
	}
	return nil, false
}
