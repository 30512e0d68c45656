package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://veiculos.fipe.org.br/api/veiculos/", cfg.API.BaseURL)
	assert.Equal(t, 500, cfg.API.RequestDelayMs)
	assert.Equal(t, 30, cfg.API.TimeoutSecs)
	assert.Equal(t, 5, cfg.API.MaxAttempts)
	assert.Equal(t, 1000, cfg.API.InitialBackoffMs)
	assert.Equal(t, 60, cfg.API.MaxBackoffSecs)
	assert.InDelta(t, 2.0, cfg.API.BackoffMultiple, 0.001)
	assert.Equal(t, 4, cfg.Harvest.Workers)
	assert.Equal(t, "latest", cfg.Harvest.BrandStrategy)
	assert.Equal(t, "./data", cfg.Output.Dir)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "./data/runs.db", cfg.Store.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	assert.Equal(t, 500*time.Millisecond, cfg.API.RequestDelay())
	assert.Equal(t, 30*time.Second, cfg.API.Timeout())
	assert.Equal(t, time.Second, cfg.API.InitialBackoff())
	assert.Equal(t, time.Minute, cfg.API.MaxBackoff())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
api:
  request_delay_ms: 1500
  max_attempts: 3
harvest:
  workers: 8
store:
  driver: postgres
  database_url: postgres://localhost/fipe
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1500, cfg.API.RequestDelayMs)
	assert.Equal(t, 3, cfg.API.MaxAttempts)
	assert.Equal(t, 8, cfg.Harvest.Workers)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/fipe", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.Equal(t, 30, cfg.API.TimeoutSecs)
	assert.Equal(t, "./data", cfg.Output.Dir)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
harvest:
  workers: 8
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))
	t.Setenv("FIPE_HARVEST_WORKERS", "2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Harvest.Workers)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())

	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))

	err := InitLogger(LogConfig{Level: "nope", Format: "json"})
	require.Error(t, err)
}
