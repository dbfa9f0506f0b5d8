// Integration tests for registry durability. JSONL files are the source
// of truth: the sqlite database is disposable and a corrupt record
// degrades to not_installed instead of failing the process.
package integration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryJSONLIsSourceOfTruth(t *testing.T) {
	env := NewTestEnv(t)

	env.MustRun("install")

	records := ReadJSONLFile[RegistryRecord](t, filepath.Join(env.DataDir, "records.jsonl"))
	require.Len(t, records, 4, "one persistence record per component")
	for _, rec := range records {
		assert.NotEmpty(t, rec.CorrelationID, "record %s has no correlation id", rec.ComponentID)
		assert.NotEmpty(t, rec.BackupRef, "record %s has no backup ref", rec.ComponentID)
		assert.Equal(t, "installed", rec.Status, "record %s status", rec.ComponentID)
	}

	// Deleting the database must not lose state: the next process
	// rebuilds it from JSONL.
	require.NoError(t, os.Remove(filepath.Join(env.DataDir, "registry.db")))

	states := ParseJSON[map[string]string](t, env.MustRun("status", "--json").Stdout)
	for _, c := range allComponents {
		assert.Equal(t, "installed", states[c], "component %s after db removal", c)
	}
}

func TestCorruptRecordDegradesToNotInstalled(t *testing.T) {
	env := NewTestEnv(t)

	env.MustRun("install")

	// Mangle the tag component's line; the other lines stay valid.
	path := filepath.Join(env.DataDir, "records.jsonl")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	mangled := false
	for i, line := range lines {
		if strings.Contains(line, `"component_id":"tag"`) {
			lines[i] = "{not valid json"
			mangled = true
		}
	}
	require.True(t, mangled, "no tag record found in records.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))

	states := ParseJSON[map[string]string](t, env.MustRun("status", "--json").Stdout)
	assert.Equal(t, "not_installed", states["tag"], "corrupt record must read as absent")
	for _, c := range []string{"service", "loginject", "reportforge"} {
		assert.Equal(t, "installed", states[c], "component %s must survive a neighboring corrupt line", c)
	}
}

func TestCorrelationIDStableAcrossReinstall(t *testing.T) {
	env := NewTestEnv(t)

	env.MustRun("install")
	meta := ReadJSONLFile[struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}](t, filepath.Join(env.DataDir, "meta.jsonl"))

	var corr string
	for _, kv := range meta {
		if kv.Key == "correlation_id" {
			corr = kv.Value
		}
	}
	require.NotEmpty(t, corr, "meta.jsonl must carry the correlation id")

	// Rollback then reinstall: the process-wide correlation id persists
	// in meta even though component records were cleared.
	env.MustRun("rollback")
	env.MustRun("install")

	meta = ReadJSONLFile[struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}](t, filepath.Join(env.DataDir, "meta.jsonl"))
	for _, kv := range meta {
		if kv.Key == "correlation_id" {
			assert.Equal(t, corr, kv.Value, "correlation id must be generated once")
		}
	}
}
