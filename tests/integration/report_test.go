// Integration tests for the standalone report command.
package integration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportSeedDeterminism(t *testing.T) {
	env := NewTestEnv(t)

	first := env.MustRun("report", "--seed", "42").Stdout
	second := env.MustRun("report", "--seed", "42").Stdout
	assert.Equal(t, first, second, "same seed must reproduce the same report")

	other := env.MustRun("report", "--seed", "43").Stdout
	assert.NotEqual(t, first, other, "different seeds must differ")
}

func TestReportDocumentStructure(t *testing.T) {
	env := NewTestEnv(t)

	out := env.MustRun("report", "--seed", "7").Stdout
	for _, section := range []string{
		"Process:",
		"OS Version:",
		"Exception Type:",
		"Thread 0 Crashed:",
		"Binary Images:",
	} {
		assert.Contains(t, out, section, "report missing section %q", section)
	}

	// Every frame line carries a fixed-width address.
	assert.Contains(t, out, "0x", "report must carry hex addresses")
}

func TestReportOutFlagWritesFile(t *testing.T) {
	env := NewTestEnv(t)
	outDir := filepath.Join(env.TempDir, "out")

	result := env.MustRun("report", "--seed", "42", "--out", outDir)
	path := strings.TrimSpace(result.Stdout)
	require.NotEmpty(t, path, "report --out must print the written path")
	assert.Equal(t, ".crash", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Thread 0 Crashed:")
}
