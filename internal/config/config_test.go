package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blockcache.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 4, cfg.Partitions)

	bs, err := cfg.BlockSizeBytes()
	require.NoError(t, err)
	assert.Equal(t, 32768, bs)

	limit, err := cfg.IOLimitBytes()
	require.NoError(t, err)
	assert.Zero(t, limit)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
dir: /var/cache/build
partitions: 8
block_size: 64KiB
logging:
  level: debug
  format: json
scrub:
  interval: 5m
  io_limit: 16MiB
origin:
  type: local
  path: /srv/artifacts
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/cache/build", cfg.Dir)
	assert.Equal(t, 8, cfg.Partitions)
	assert.Equal(t, 5*time.Minute, cfg.Scrub.Interval)
	assert.Equal(t, "local", cfg.Origin.Type)

	bs, err := cfg.BlockSizeBytes()
	require.NoError(t, err)
	assert.Equal(t, 65536, bs)

	limit, err := cfg.IOLimitBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(16<<20), limit)

	level, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "partitions: 8\n")
	t.Setenv("BLOCKCACHE_PARTITIONS", "2")
	t.Setenv("BLOCKCACHE_LOGGING_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Partitions)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoader_FlagOverride(t *testing.T) {
	l := NewLoader(writeConfig(t, "dir: /from/file\n"))
	l.Viper().Set("dir", "/from/flag")

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, "/from/flag", cfg.Dir)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative partitions", func(c *Config) { c.Partitions = -1 }},
		{"bad block size", func(c *Config) { c.BlockSize = "lots" }},
		{"block size too large", func(c *Config) { c.BlockSize = "1MiB" }},
		{"bad io limit", func(c *Config) { c.Scrub.IOLimit = "fast" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"negative interval", func(c *Config) { c.Scrub.Interval = -time.Second }},
		{"local without path", func(c *Config) { c.Origin.Type = "local" }},
		{"s3 without bucket", func(c *Config) { c.Origin.Type = "s3" }},
		{"minio without endpoint", func(c *Config) { c.Origin = OriginConfig{Type: "minio", Bucket: "b"} }},
		{"unknown origin", func(c *Config) { c.Origin.Type = "ftp" }},
	}

	require.NoError(t, Validate(Default()))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	_, err := Load(writeConfig(t, "partitions: [\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "logging:\n  format: xml\n"))
	assert.ErrorContains(t, err, "logging.format")
}
