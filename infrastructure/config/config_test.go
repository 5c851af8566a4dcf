package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "conexiones-backend/pkg/errors"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon-key")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, "fragments", cfg.FragmentsTable)
	assert.Equal(t, "gpt-4.1-mini", cfg.DefaultModel)
	assert.InDelta(t, 0.8, cfg.Temperature, 0.0001)
	assert.Equal(t, 20, cfg.WindowSize)
	assert.Equal(t, 6, cfg.TemplateSegments)
	assert.True(t, cfg.RealtimeEnabled)
	assert.False(t, cfg.LLMConfigured())
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("STORY_WINDOW_SIZE", "30")
	t.Setenv("REALTIME_ENABLED", "false")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.LLMConfigured())
	assert.Equal(t, "gpt-4o", cfg.DefaultModel)
	assert.Equal(t, 30, cfg.WindowSize)
	assert.False(t, cfg.RealtimeEnabled)
}

func TestLoadConfig_MissingStoreSettings(t *testing.T) {
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("SUPABASE_ANON_KEY", "")

	_, err := LoadConfig()

	require.Error(t, err)
	assert.True(t, appErrors.IsConfiguration(err))
}

func TestLoadConfig_FileOverridesBelowEnv(t *testing.T) {
	setRequiredEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "local.yaml")
	content := "default_model: gpt-4o-mini\nlog_level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", cfg.DefaultModel, "file override applies")
	assert.Equal(t, "warn", cfg.LogLevel, "environment wins over file")
}
