// Package registry implements the durable state registry: one
// persistence record per component plus process-wide metadata such as
// the correlation id. SQLite is the query engine; JSONL files in the
// data directory are the source of truth and survive process restarts.
package registry

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/EsKaye/LilithOS-KernalInit/pkg/types"
)

// Registry tracks installed components. Safe for concurrent use by the
// controller and the footprints' background loops.
type Registry struct {
	mu      sync.Mutex
	db      *sql.DB
	dataDir string
	open    bool
	log     *slog.Logger
}

// Open builds a registry rooted at dataDir. The sqlite database is
// rebuilt from the JSONL files, so a stale or corrupt database never
// outlives an Open.
func Open(dataDir string, log *slog.Logger) (*Registry, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "registry.db")
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening registry db: %w", err)
	}
	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying schema: %w", err)
		}
	}

	r := &Registry{db: db, dataDir: dataDir, open: true, log: log}
	if err := r.loadJSONL(); err != nil {
		db.Close()
		return nil, fmt.Errorf("loading registry state: %w", err)
	}
	return r, nil
}

// Close releases the database. Idempotent.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		return nil
	}
	r.open = false
	if r.db != nil {
		if err := r.db.Close(); err != nil {
			return err
		}
		r.db = nil
	}
	return nil
}

// Get returns the record for id, or types.ErrNotFound. A record that
// fails validation is treated as absent and logged, never fatal.
func (r *Registry) Get(id types.ComponentID) (*types.PersistenceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		return nil, types.ErrRegistryClosed
	}
	return r.getLocked(id)
}

func (r *Registry) getLocked(id types.ComponentID) (*types.PersistenceRecord, error) {
	row := r.db.QueryRow(
		"SELECT component_id, correlation_id, installed_at, backup_ref, status FROM records WHERE component_id = ?",
		string(id),
	)
	var rj recordJSON
	if err := row.Scan(&rj.ComponentID, &rj.CorrelationID, &rj.InstalledAt, &rj.BackupRef, &rj.Status); err != nil {
		if err == sql.ErrNoRows {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("querying record %s: %w", id, err)
	}

	rec, err := rj.toRecord()
	if err != nil {
		r.log.Warn("corrupt registry record treated as absent", "component", id, "error", err)
		return nil, types.ErrNotFound
	}
	return rec, nil
}

// Put validates and upserts rec, then persists the records file.
func (r *Registry) Put(rec *types.PersistenceRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		return types.ErrRegistryClosed
	}

	_, err := r.db.Exec(
		`INSERT INTO records (component_id, correlation_id, installed_at, backup_ref, status)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(component_id) DO UPDATE SET
             correlation_id = excluded.correlation_id,
             installed_at = excluded.installed_at,
             backup_ref = excluded.backup_ref,
             status = excluded.status`,
		string(rec.ComponentID), rec.CorrelationID,
		rec.InstalledAt.UTC().Format(time.RFC3339Nano),
		rec.BackupRef, rec.Status,
	)
	if err != nil {
		return fmt.Errorf("upserting record %s: %w", rec.ComponentID, err)
	}
	return r.persistRecordsLocked()
}

// Delete removes the record for id, if present, and persists.
func (r *Registry) Delete(id types.ComponentID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		return types.ErrRegistryClosed
	}
	if _, err := r.db.Exec("DELETE FROM records WHERE component_id = ?", string(id)); err != nil {
		return fmt.Errorf("deleting record %s: %w", id, err)
	}
	return r.persistRecordsLocked()
}

// List returns all valid records, ordered by component id.
func (r *Registry) List() ([]types.PersistenceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		return nil, types.ErrRegistryClosed
	}

	rows, err := r.db.Query(
		"SELECT component_id, correlation_id, installed_at, backup_ref, status FROM records ORDER BY component_id",
	)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var records []types.PersistenceRecord
	for rows.Next() {
		var rj recordJSON
		if err := rows.Scan(&rj.ComponentID, &rj.CorrelationID, &rj.InstalledAt, &rj.BackupRef, &rj.Status); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		rec, err := rj.toRecord()
		if err != nil {
			r.log.Warn("corrupt registry record skipped", "component", rj.ComponentID, "error", err)
			continue
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// CorrelationID returns the process-wide correlation id, generating and
// persisting it on first call. Every later call returns the stored
// value unchanged, so repeated invocations recognize the same logical
// installation.
func (r *Registry) CorrelationID() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		return "", types.ErrRegistryClosed
	}

	var value string
	err := r.db.QueryRow("SELECT value FROM meta WHERE key = ?", metaCorrelationID).Scan(&value)
	if err == nil && value != "" {
		return value, nil
	}
	if err != nil && err != sql.ErrNoRows {
		return "", fmt.Errorf("querying correlation id: %w", err)
	}

	value = newUUID()
	if _, err := r.db.Exec(
		"INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO NOTHING",
		metaCorrelationID, value,
	); err != nil {
		return "", fmt.Errorf("storing correlation id: %w", err)
	}
	// Re-read in case a concurrent writer won the insert.
	if err := r.db.QueryRow("SELECT value FROM meta WHERE key = ?", metaCorrelationID).Scan(&value); err != nil {
		return "", fmt.Errorf("re-reading correlation id: %w", err)
	}
	if err := r.persistMetaLocked(); err != nil {
		return "", err
	}
	return value, nil
}

// newUUID generates a UUID v7, falling back to v4.
func newUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// toRecord converts the on-disk shape into a validated record.
func (rj recordJSON) toRecord() (*types.PersistenceRecord, error) {
	installedAt, err := time.Parse(time.RFC3339Nano, rj.InstalledAt)
	if err != nil {
		return nil, fmt.Errorf("parsing installed_at %q: %w", rj.InstalledAt, err)
	}
	rec := &types.PersistenceRecord{
		ComponentID:   types.ComponentID(rj.ComponentID),
		CorrelationID: rj.CorrelationID,
		InstalledAt:   installedAt,
		BackupRef:     rj.BackupRef,
		Status:        rj.Status,
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

// loadJSONL hydrates the sqlite tables from the JSONL files. Records
// that fail to decode or validate are skipped and logged.
func (r *Registry) loadJSONL() error {
	rawRecords, err := readJSONL(filepath.Join(r.dataDir, recordsFile))
	if err != nil {
		return err
	}
	for _, raw := range rawRecords {
		var rj recordJSON
		if err := json.Unmarshal(raw, &rj); err != nil {
			r.log.Warn("unreadable registry line skipped", "error", err)
			continue
		}
		if _, err := rj.toRecord(); err != nil {
			r.log.Warn("corrupt registry record skipped", "component", rj.ComponentID, "error", err)
			continue
		}
		if _, err := r.db.Exec(
			"INSERT OR REPLACE INTO records (component_id, correlation_id, installed_at, backup_ref, status) VALUES (?, ?, ?, ?, ?)",
			rj.ComponentID, rj.CorrelationID, rj.InstalledAt, rj.BackupRef, rj.Status,
		); err != nil {
			return fmt.Errorf("hydrating record %s: %w", rj.ComponentID, err)
		}
	}

	rawMeta, err := readJSONL(filepath.Join(r.dataDir, metaFile))
	if err != nil {
		return err
	}
	for _, raw := range rawMeta {
		var mj metaJSON
		if err := json.Unmarshal(raw, &mj); err != nil || mj.Key == "" {
			continue
		}
		if _, err := r.db.Exec(
			"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)", mj.Key, mj.Value,
		); err != nil {
			return fmt.Errorf("hydrating meta %s: %w", mj.Key, err)
		}
	}
	if _, err := r.db.Exec(
		"INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO NOTHING",
		metaSchemaVersion, schemaVersion,
	); err != nil {
		return fmt.Errorf("writing schema version: %w", err)
	}
	return nil
}

// persistRecordsLocked writes the records table to records.jsonl.
func (r *Registry) persistRecordsLocked() error {
	rows, err := r.db.Query(
		"SELECT component_id, correlation_id, installed_at, backup_ref, status FROM records ORDER BY component_id",
	)
	if err != nil {
		return fmt.Errorf("reading records for persist: %w", err)
	}
	defer rows.Close()

	var lines []json.RawMessage
	for rows.Next() {
		var rj recordJSON
		if err := rows.Scan(&rj.ComponentID, &rj.CorrelationID, &rj.InstalledAt, &rj.BackupRef, &rj.Status); err != nil {
			return fmt.Errorf("scanning record for persist: %w", err)
		}
		line, err := json.Marshal(rj)
		if err != nil {
			return fmt.Errorf("encoding record %s: %w", rj.ComponentID, err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return writeJSONL(filepath.Join(r.dataDir, recordsFile), lines)
}

// persistMetaLocked writes the meta table to meta.jsonl.
func (r *Registry) persistMetaLocked() error {
	rows, err := r.db.Query("SELECT key, value FROM meta ORDER BY key")
	if err != nil {
		return fmt.Errorf("reading meta for persist: %w", err)
	}
	defer rows.Close()

	var lines []json.RawMessage
	for rows.Next() {
		var mj metaJSON
		if err := rows.Scan(&mj.Key, &mj.Value); err != nil {
			return fmt.Errorf("scanning meta for persist: %w", err)
		}
		line, err := json.Marshal(mj)
		if err != nil {
			return fmt.Errorf("encoding meta %s: %w", mj.Key, err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return writeJSONL(filepath.Join(r.dataDir, metaFile), lines)
}
