package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HK_DATA_DIR", dir)

	cfg, err := NewLoader("", "test").Load()
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, filepath.Join(dir, "apple_health_export", "export.xml"), cfg.ExportPath)
	assert.Equal(t, filepath.Join(dir, "healthkit.db"), cfg.DBPath)
	assert.Equal(t, filepath.Join(dir, "reports"), cfg.ReportDir)
	assert.Equal(t, filepath.Join(dir, "dedup"), cfg.DedupDir)
	assert.Equal(t, "badger", cfg.DedupBackend)
	assert.Equal(t, int64(1<<30), cfg.MaxExportBytes)
	assert.Equal(t, ":8080", cfg.APIListenAddr)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "test", cfg.Version)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HK_DATA_DIR", dir)

	cfgPath := filepath.Join(dir, "config.yaml")
	yaml := `
exportPath: /exports/export.xml
dedupBackend: memory
api:
  listen: ":9999"
  rateLimitRPM: 30
cache:
  ttl: 90s
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0o600))

	cfg, err := NewLoader(cfgPath, "test").Load()
	require.NoError(t, err)

	assert.Equal(t, "/exports/export.xml", cfg.ExportPath)
	assert.Equal(t, "memory", cfg.DedupBackend)
	assert.Equal(t, ":9999", cfg.APIListenAddr)
	assert.Equal(t, 30, cfg.RateLimitRPM)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadEnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HK_DATA_DIR", dir)
	t.Setenv("HK_LISTEN", ":7070")
	t.Setenv("HK_LOG_LEVEL", "warn")

	cfgPath := filepath.Join(dir, "config.yaml")
	yaml := `
api:
  listen: ":9999"
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0o600))

	cfg, err := NewLoader(cfgPath, "test").Load()
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.APIListenAddr)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HK_DATA_DIR", dir)

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("bouquet: premium\n"), 0o600))

	_, err := NewLoader(cfgPath, "test").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config file")
}

func TestLoadRejectsBadDuration(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HK_DATA_DIR", dir)

	cfgPath := filepath.Join(dir, "config.yaml")
	yaml := `
cache:
  ttl: soon
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0o600))

	_, err := NewLoader(cfgPath, "test").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.ttl")
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HK_DATA_DIR", dir)
	t.Setenv("HK_DEDUP_BACKEND", "postgres")

	_, err := NewLoader("", "test").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DedupBackend")
}

func TestParseEnvHelpers(t *testing.T) {
	t.Setenv("HK_TEST_INT", "42")
	t.Setenv("HK_TEST_BAD_INT", "many")
	t.Setenv("HK_TEST_BOOL", "true")
	t.Setenv("HK_TEST_DURATION", "150ms")
	t.Setenv("HK_TEST_SLICE", "a, b ,c")

	assert.Equal(t, 42, ParseInt("HK_TEST_INT", 1))
	assert.Equal(t, 7, ParseInt("HK_TEST_BAD_INT", 7))
	assert.True(t, ParseBool("HK_TEST_BOOL", false))
	assert.Equal(t, 150*time.Millisecond, ParseDuration("HK_TEST_DURATION", time.Second))
	assert.Equal(t, []string{"a", "b", "c"}, ParseStringSlice("HK_TEST_SLICE", nil))
	assert.Equal(t, "fallback", ParseString("HK_TEST_MISSING", "fallback"))
}

func TestConfigHolderReload(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HK_DATA_DIR", dir)

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("logging:\n  level: info\n"), 0o600))

	loader := NewLoader(cfgPath, "test")
	initial, err := loader.Load()
	require.NoError(t, err)

	holder := NewConfigHolder(initial, loader, cfgPath)
	assert.Equal(t, "info", holder.Get().LogLevel)

	require.NoError(t, os.WriteFile(cfgPath, []byte("logging:\n  level: debug\n"), 0o600))
	require.NoError(t, holder.Reload(t.Context()))
	assert.Equal(t, "debug", holder.Get().LogLevel)
}

func TestConfigHolderReloadKeepsOldOnFailure(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HK_DATA_DIR", dir)

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("logging:\n  level: info\n"), 0o600))

	loader := NewLoader(cfgPath, "test")
	initial, err := loader.Load()
	require.NoError(t, err)

	holder := NewConfigHolder(initial, loader, cfgPath)

	require.NoError(t, os.WriteFile(cfgPath, []byte("logging:\n  level: [broken\n"), 0o600))
	require.Error(t, holder.Reload(t.Context()))
	assert.Equal(t, "info", holder.Get().LogLevel)
}
