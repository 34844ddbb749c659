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

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, int32(10), cfg.Store.Pool.MaxConns)
	assert.Equal(t, "fs", cfg.Storage.Backend)
	assert.Equal(t, "./documents", cfg.Storage.Dir)
	assert.True(t, cfg.Storage.S3.UseSSL)
	assert.Equal(t, 50, cfg.Anthropic.RateLimitRPM)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Extract.Model)
	assert.Equal(t, int64(4096), cfg.Extract.MaxTokens)
	assert.Equal(t, "commercial_real_estate", cfg.Extract.Industry)
	assert.Equal(t, 3, cfg.Extract.Retry.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Extract.Retry.InitialBackoff)
	assert.Equal(t, 30*time.Second, cfg.Extract.Retry.MaxBackoff)
	assert.InDelta(t, 2.0, cfg.Extract.Retry.Multiplier, 0.001)
	assert.InDelta(t, 0.25, cfg.Extract.Retry.JitterFraction, 0.001)
	assert.Equal(t, 5, cfg.Worker.Concurrency)
	assert.Equal(t, 5*time.Second, cfg.Worker.PollInterval)
	assert.Equal(t, 3, cfg.Worker.MaxAttempts)
	assert.Equal(t, 5*time.Minute, cfg.Worker.RetryDelay)
	assert.Equal(t, 15*time.Minute, cfg.Worker.StaleTimeout)
	assert.Equal(t, 60*time.Second, cfg.Worker.ShutdownGrace)
	assert.Equal(t, "mask", cfg.Redaction.Mode)
	assert.InDelta(t, 0.005, cfg.Confidence.CapRateTolerance, 0.0001)
	assert.InDelta(t, 0.98, cfg.Confidence.OccupancyHighWatermark, 0.001)
	assert.InDelta(t, 0.80, cfg.Confidence.CriticalCoverageFloor, 0.001)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  database_url: postgres://localhost/extract
storage:
  backend: s3
  s3:
    endpoint: minio.internal:9000
    bucket: documents
extract:
  retry:
    max_attempts: 5
    initial_backoff: 1s
worker:
  concurrency: 10
  poll_interval: 2s
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/extract", cfg.Store.DatabaseURL)
	assert.Equal(t, "s3", cfg.Storage.Backend)
	assert.Equal(t, "minio.internal:9000", cfg.Storage.S3.Endpoint)
	assert.Equal(t, "documents", cfg.Storage.S3.Bucket)
	assert.Equal(t, 10, cfg.Worker.Concurrency)
	assert.Equal(t, 2*time.Second, cfg.Worker.PollInterval)
	assert.Equal(t, 5, cfg.Extract.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Extract.Retry.InitialBackoff)
	// Unset retry knobs keep their defaults.
	assert.Equal(t, 30*time.Second, cfg.Extract.Retry.MaxBackoff)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	// Defaults still apply for unset values
	assert.Equal(t, 3, cfg.Worker.MaxAttempts)
	assert.Equal(t, "mask", cfg.Redaction.Mode)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
redaction:
  mode: hash
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("CREX_REDACTION_MODE", "mask")
	t.Setenv("CREX_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "mask", cfg.Redaction.Mode)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("CREX_WORKER_CONCURRENCY", "12")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Worker.Concurrency)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with enough populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Storage.Backend = "fs"
	cfg.Storage.Dir = "./documents"
	cfg.Redaction.Mode = "mask"
	cfg.Worker.Concurrency = 5
	cfg.Worker.MaxAttempts = 3
	return cfg
}

func TestValidateWorker_AllPresent(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.DatabaseURL = "postgres://localhost/test"
	cfg.Anthropic.Key = "sk-ant-key"

	assert.NoError(t, cfg.Validate("worker"))
}

func TestValidateWorker_MissingFields(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("worker")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
	assert.Contains(t, err.Error(), "anthropic.key is required")
}

func TestValidateWorker_S3Backend(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.DatabaseURL = "postgres://localhost/test"
	cfg.Anthropic.Key = "sk-ant-key"
	cfg.Storage.Backend = "s3"

	err := cfg.Validate("worker")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "storage.s3.endpoint is required")
	assert.Contains(t, err.Error(), "storage.s3.bucket is required")

	cfg.Storage.S3.Endpoint = "minio.internal:9000"
	cfg.Storage.S3.Bucket = "documents"
	assert.NoError(t, cfg.Validate("worker"))
}

func TestValidateWorker_BadRedactionMode(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.DatabaseURL = "postgres://localhost/test"
	cfg.Anthropic.Key = "sk-ant-key"
	cfg.Redaction.Mode = "scramble"

	err := cfg.Validate("worker")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "redaction.mode must be mask, hash, or none")
}

func TestValidateWorker_ConcurrencyBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.DatabaseURL = "postgres://localhost/test"
	cfg.Anthropic.Key = "sk-ant-key"

	cfg.Worker.Concurrency = 0
	err := cfg.Validate("worker")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "worker.concurrency must be between 1 and 50")

	cfg.Worker.Concurrency = 51
	err = cfg.Validate("worker")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "worker.concurrency must be between 1 and 50")

	cfg.Worker.Concurrency = 50
	assert.NoError(t, cfg.Validate("worker"))
}

func TestValidateMigrate_OnlyNeedsDB(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate("migrate")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/test"
	assert.NoError(t, cfg.Validate("migrate"))
	assert.NoError(t, cfg.Validate("queue"))
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
