package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 1883\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "memory", cfg.Audit.Backend)
	assert.Equal(t, 100, cfg.RateLimit.MaxAttempts)
}

func TestDefaultNeedsNoFile(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 1883, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Audit.Backend)
	assert.False(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 70000\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsUnknownAuditBackend(t *testing.T) {
	path := writeConfigFile(t, "audit:\n  backend: filesystem\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsMetricsPortCollision(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 1883\nmetrics:\n  enabled: true\n  port: 1883\n")

	_, err := Load(path)
	assert.Error(t, err)
}
