// JSONL persistence for the registry. One file per table, written
// atomically with the temp-file, fsync, rename pattern. Malformed
// lines are skipped on load so a corrupt record degrades to "not
// installed" instead of breaking the registry.
package registry

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/EsKaye/LilithOS-KernalInit/internal/fsutil"
)

const (
	recordsFile = "records.jsonl"
	metaFile    = "meta.jsonl"
)

// recordJSON is the on-disk shape of one persistence record.
type recordJSON struct {
	ComponentID   string `json:"component_id"`
	CorrelationID string `json:"correlation_id"`
	InstalledAt   string `json:"installed_at"`
	BackupRef     string `json:"backup_ref"`
	Status        string `json:"status"`
}

// metaJSON is the on-disk shape of one meta key/value pair.
type metaJSON struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// readJSONL returns each non-empty, valid JSON line of path. A missing
// file yields no records; malformed lines are skipped.
func readJSONL(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var records []json.RawMessage
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		records = append(records, json.RawMessage(cp))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return records, nil
}

// writeJSONL atomically replaces path with one line per record.
func writeJSONL(path string, records []json.RawMessage) error {
	var buf bytes.Buffer
	for _, rec := range records {
		buf.Write(rec)
		buf.WriteByte('\n')
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	return fsutil.WriteFileAtomic(path, buf.Bytes(), 0644)
}
