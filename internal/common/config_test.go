package common

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
	path := filepath.Join(t.TempDir(), "auditrecon.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, "development", config.Environment)
	assert.Equal(t, 10, config.Backend.RateLimit)
	assert.Equal(t, 30*time.Second, config.BackendTimeout())
	assert.Equal(t, 5*time.Second, config.PollInterval())
	assert.Equal(t, 8, config.Poller.Concurrency)
	assert.False(t, config.Metrics.Enabled)
	assert.False(t, config.IsProduction())
}

func TestLoadFromFiles_FileOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
environment = "production"

[backend]
base_url = "https://partners.example.com/api"
timeout = "10s"
rate_limit = 3

[poller]
interval = "2s"

[logging]
level = "debug"
`)

	config, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.True(t, config.IsProduction())
	assert.Equal(t, "https://partners.example.com/api", config.Backend.BaseURL)
	assert.Equal(t, 10*time.Second, config.BackendTimeout())
	assert.Equal(t, 3, config.Backend.RateLimit)
	assert.Equal(t, 2*time.Second, config.PollInterval())
	// Untouched sections keep their defaults
	assert.Equal(t, 8, config.Poller.Concurrency)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestLoadFromFiles_LaterFileWins(t *testing.T) {
	base := writeConfigFile(t, `
[backend]
base_url = "https://base.example.com"
rate_limit = 5
`)
	override := writeConfigFile(t, `
[backend]
base_url = "https://override.example.com"
`)

	config, err := LoadFromFiles(base, override)
	require.NoError(t, err)

	assert.Equal(t, "https://override.example.com", config.Backend.BaseURL)
	assert.Equal(t, 5, config.Backend.RateLimit, "fields absent from the later file survive")
}

func TestLoadFromFiles_EnvOverridesFiles(t *testing.T) {
	path := writeConfigFile(t, `
[backend]
base_url = "https://file.example.com"

[session]
token = "file-token"
`)

	t.Setenv("AUDITRECON_BACKEND_BASE_URL", "https://env.example.com")
	t.Setenv("AUDITRECON_SESSION_TOKEN", "env-token")
	t.Setenv("AUDITRECON_POLLER_INTERVAL", "500ms")
	t.Setenv("AUDITRECON_METRICS_ENABLED", "true")

	config, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", config.Backend.BaseURL)
	assert.Equal(t, "env-token", config.Session.Token)
	assert.Equal(t, 500*time.Millisecond, config.PollInterval())
	assert.True(t, config.Metrics.Enabled)
}

func TestLoadFromFiles_MissingFile(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	config := NewDefaultConfig()

	// Missing base_url fails
	require.Error(t, config.Validate())

	config.Backend.BaseURL = "https://partners.example.com/api"
	require.NoError(t, config.Validate())

	config.Poller.Interval = "not-a-duration"
	require.Error(t, config.Validate())

	config.Poller.Interval = "5s"
	config.Backend.RateLimit = 0
	require.Error(t, config.Validate())
}
