package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSQLiteConfig writes a config file pointing at a throwaway
// sqlite database, so put and get in separate command invocations see
// the same data.
func writeSQLiteConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf(`
store:
  backend: sqlite
  path: %s
auth:
  owner_id: 1000
`, filepath.Join(dir, "attrs.db"))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestPut_ThenGet(t *testing.T) {
	cfg := writeSQLiteConfig(t)
	spec := writeFile(t, "jobspec.json", `{"tasks":1}`)

	out, err := execute(t, "", "put", "42", "jobspec", "--file", spec, "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "stored job.00000000000000000042.jobspec")

	out, err = execute(t, "", "get", "--id", "42", "jobspec", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, `{"id":42,"jobspec":"{\"tasks\":1}"}`)
}

func TestPut_FromStdin(t *testing.T) {
	cfg := writeSQLiteConfig(t)
	log := `{"timestamp":1,"name":"submit","context":{"userid":5000}}` + "\n"

	_, err := execute(t, log, "put", "7", "eventlog", "--config", cfg)
	require.NoError(t, err)

	out, err := execute(t, "", "get", "--id", "7", "eventlog", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "submit")
}

func TestPut_RejectsInvalidJobspec(t *testing.T) {
	cfg := writeSQLiteConfig(t)
	spec := writeFile(t, "jobspec.json", `{"version":1}`)

	_, err := execute(t, "", "put", "42", "jobspec", "--file", spec, "--config", cfg)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestPut_ForceSkipsValidation(t *testing.T) {
	cfg := writeSQLiteConfig(t)
	spec := writeFile(t, "jobspec.json", `{"version":1}`)

	_, err := execute(t, "", "put", "42", "jobspec", "--file", spec, "--force", "--config", cfg)
	assert.NoError(t, err)
}

func TestPut_RejectsMalformedEventlog(t *testing.T) {
	cfg := writeSQLiteConfig(t)

	_, err := execute(t, "not json\n", "put", "7", "eventlog", "--config", cfg)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestPut_InvalidJobID(t *testing.T) {
	cfg := writeSQLiteConfig(t)

	_, err := execute(t, "{}", "put", "notanumber", "other", "--config", cfg)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
