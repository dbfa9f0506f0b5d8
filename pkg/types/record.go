package types

import "time"

// Record status values. Installed is the steady state; failed marks an
// apply that aborted midway and still needs its snapshot for rollback.
// A rolled-back component has no record at all.
const (
	StatusInstalled = "installed"
	StatusFailed    = "failed"
)

// PersistenceRecord is the registry's durable record of one installed
// component. At most one record exists per ComponentID; a repeated
// Apply returns the existing record unchanged.
type PersistenceRecord struct {
	ComponentID   ComponentID `json:"component_id"`
	CorrelationID string      `json:"correlation_id"`
	InstalledAt   time.Time   `json:"installed_at"`
	// BackupRef is the snapshot id captured immediately before the
	// component first mutated host state. Non-owning: the snapshot
	// itself belongs to the backup manager.
	BackupRef string `json:"backup_ref"`
	Status    string `json:"status"`
}

// Validate checks the record for the fields every consumer relies on.
func (r *PersistenceRecord) Validate() error {
	if !IsValidComponent(r.ComponentID) {
		return ErrInvalidComponent
	}
	if r.CorrelationID == "" {
		return ErrInvalidRecord
	}
	if r.InstalledAt.IsZero() {
		return ErrInvalidRecord
	}
	switch r.Status {
	case StatusInstalled, StatusFailed:
	default:
		return ErrInvalidRecord
	}
	return nil
}
