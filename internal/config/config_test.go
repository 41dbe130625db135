package config_test

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/raphaelgruber/medilink-console/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"MEDILINK_CONFIG", "MEDILINK_API_URL", "MEDILINK_API_TIMEOUT", "MEDILINK_CALL_TIMEOUT",
		"MEDILINK_TOAST_TTL", "MEDILINK_SETTLE_DELAY", "MEDILINK_PACING_SCALE",
		"MEDILINK_DEMO_PATIENT", "MEDILINK_SERVE_ADDR", "MEDILINK_LOG_FILE", "MEDILINK_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
	// godotenv.Load reads .env from the working directory.
	t.Chdir(t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, 3*time.Second, cfg.ToastTTL)
	assert.Equal(t, "5", cfg.DemoPatientID)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("MEDILINK_API_URL", "http://api.example:9000/")
	t.Setenv("MEDILINK_TOAST_TTL", "1500")
	t.Setenv("MEDILINK_SETTLE_DELAY", "250ms")
	t.Setenv("MEDILINK_PACING_SCALE", "0.5")
	t.Setenv("MEDILINK_LOG_LEVEL", "debug")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "http://api.example:9000", cfg.APIBaseURL, "trailing slash should be trimmed")
	assert.Equal(t, 1500*time.Millisecond, cfg.ToastTTL)
	assert.Equal(t, 250*time.Millisecond, cfg.SettleDelay)
	assert.InDelta(t, 0.5, cfg.PacingScale, 1e-9)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoadInvalidDurationKeepsDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("MEDILINK_CALL_TIMEOUT", "soon")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, config.Default().CallTimeout, cfg.CallTimeout)
}

func TestLoadYAMLFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "medilink.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  url: http://yaml-host:8000
  call_timeout: 5s
session:
  toast_ttl: 2s
  pacing_scale: 0
  demo_patient_id: "3"
log:
  level: warn
`), 0o600))
	t.Setenv("MEDILINK_CONFIG", path)
	t.Setenv("MEDILINK_DEMO_PATIENT", "6")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "http://yaml-host:8000", cfg.APIBaseURL)
	assert.Equal(t, 5*time.Second, cfg.CallTimeout)
	assert.Equal(t, 2*time.Second, cfg.ToastTTL)
	assert.Zero(t, cfg.PacingScale)
	assert.Equal(t, "6", cfg.DemoPatientID, "environment should win over the file")
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
}

func TestLoadYAMLFileErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("MEDILINK_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := config.Load()
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("session:\n  toast_ttl: forever\n"), 0o600))
	t.Setenv("MEDILINK_CONFIG", path)
	_, err = config.Load()
	require.Error(t, err)
}

func TestLoadRejectsNegativePacing(t *testing.T) {
	clearEnv(t)
	t.Setenv("MEDILINK_PACING_SCALE", "-1")
	_, err := config.Load()
	require.Error(t, err)
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := config.SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("routed", "hospital", "Rashid Hospital")

	assert.Contains(t, stderr.String(), "hospital=\"Rashid Hospital\"")
	assert.Contains(t, file.String(), `"hospital":"Rashid Hospital"`)
	assert.NotContains(t, stderr.String(), "hidden")
}

func TestSetupLoggerInteractiveSkipsStderr(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.log")
	logger, cleanup := config.SetupLogger(path, slog.LevelInfo, true)
	logger.Info("console started")
	require.NoError(t, cleanup())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "console started")
}
