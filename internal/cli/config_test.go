package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/devreload/internal/config"
)

func TestConfigCommand_PrintsDefaults(t *testing.T) {
	stdout, _, err := executeCommand("config")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &got))

	assert.Equal(t, config.DefaultPort, got["port"])
	assert.Equal(t, "auto", got["strategy"])
	assert.Equal(t, "1s", got["debounce"])
	assert.Equal(t, "/reload", got["endpoint"])
	assert.NotContains(t, got, "ConfigFile")
	assert.NotContains(t, got, "no-color")
}

func TestConfigCommand_ReflectsEnv(t *testing.T) {
	t.Setenv("DEVRELOAD_PORT", "9090")

	stdout, _, err := executeCommand("config")
	require.NoError(t, err)
	assert.Contains(t, stdout, "port: 9090")
}

func TestConfigCommand_DiffMatchesDefaults(t *testing.T) {
	stdout, _, err := executeCommand("config", "--diff")
	require.NoError(t, err)
	assert.Equal(t, "configuration matches defaults\n", stdout)
}

func TestConfigCommand_DiffShowsChanges(t *testing.T) {
	p := filepath.Join(t.TempDir(), "devreload.yaml")
	require.NoError(t, os.WriteFile(p, []byte("port: 3000\ndebounce: 250ms\n"), 0o600))

	stdout, _, err := executeCommand("--config", p, "config", "--diff")
	require.NoError(t, err)

	assert.Contains(t, stdout, "--- defaults")
	assert.Contains(t, stdout, "+++ effective")
	assert.Contains(t, stdout, "-port: 8000")
	assert.Contains(t, stdout, "+port: 3000")
	assert.Contains(t, stdout, "+debounce: 250ms")
	assert.NotContains(t, stdout, "+strategy")
}

func TestConfigCommand_NoArgs(t *testing.T) {
	_, _, err := executeCommand("config", "extra")
	require.Error(t, err)
}
