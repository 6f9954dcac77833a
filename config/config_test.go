package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "BOLD_BASE_URL", "BOLD_TIMEOUT", "BOLD_RATE_LIMIT", "CACHE_TTL", "ARCHIVE_BACKEND", "MINIO_USE_SSL", "LOG_FORMAT"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "http://www.boldsystems.org/index.php", cfg.BaseURL)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, 2.0, cfg.RateLimit)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.Empty(t, cfg.ArchiveBackend)
	assert.False(t, cfg.MinIOUseSSL)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("BOLD_TIMEOUT", "5s")
	t.Setenv("BOLD_RATE_LIMIT", "0.5")
	t.Setenv("BOLD_RATE_BURST", "not a number")
	t.Setenv("CACHE_TTL", "90m")
	t.Setenv("MINIO_USE_SSL", "true")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 0.5, cfg.RateLimit)
	assert.Equal(t, 4, cfg.RateBurst)
	assert.Equal(t, 90*time.Minute, cfg.CacheTTL)
	assert.True(t, cfg.MinIOUseSSL)
}

func TestLoadFile_Overlay(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("BOLD_CONFIG", "")

	path := filepath.Join(t.TempDir(), "bold.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
base_url: http://localhost:9999/index.php
timeout: 10s
archive_backend: minio
archive_bucket: traces
minio_endpoint: localhost:9000
log_format: json
`), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port, "keys missing from the file keep the env value")
	assert.Equal(t, "http://localhost:9999/index.php", cfg.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, "minio", cfg.ArchiveBackend)
	assert.Equal(t, "json", cfg.LogFormat)

	t.Setenv("BOLD_CONFIG", path)
	cfg, err = LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, "traces", cfg.ArchiveBucket)
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("timeout: [1, 2"), 0644))
	_, err = LoadFile(bad)
	assert.Error(t, err)

	incomplete := filepath.Join(dir, "s3.yaml")
	require.NoError(t, os.WriteFile(incomplete, []byte("archive_backend: s3\n"), 0644))
	_, err = LoadFile(incomplete)
	assert.ErrorContains(t, err, "ARCHIVE_BUCKET")
}

func TestNewLogger(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" WARN "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("loud"))

	var buf bytes.Buffer
	cfg := &Config{LogLevel: "warn", LogFormat: "json"}
	logger := cfg.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "mode", "identify")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"mode":"identify"`)
}
