package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_Overrides(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9999
poller:
  interval: 250ms
aria2:
  rpc_url: http://127.0.0.1:6800/jsonrpc
  secret: s3cret
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, config.Server.Port)
	assert.Equal(t, 250*time.Millisecond, config.Poller.Interval)
	assert.Equal(t, "s3cret", config.Aria2.Secret)
	// Untouched sections keep defaults
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, 50, config.History.ListLimit)
}

func TestLoadConfig_InvalidPort(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 99999
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid server port")
}

func TestLoadConfig_ExpandsHome(t *testing.T) {
	path := writeConfigFile(t, `
history:
  database_path: ~/state/history.db
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "state/history.db"), config.History.DatabasePath)
}
