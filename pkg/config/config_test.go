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
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SWEEP_SLACK", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, cfg.SweepSlack)
	assert.Equal(t, time.Hour, cfg.SweepWindow)
	assert.Equal(t, 3, cfg.AIMaxAttempts)
	assert.Equal(t, "America/Chicago", cfg.DefaultTimeZone)
	assert.Equal(t, 30*24*time.Hour, cfg.ReplyTokenTTL)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database_driver: sqlite\ndatabase_dsn: file::memory:\nsweep_concurrency: 4\nai_timeout: 10s\nopenai_model: from-file\n"), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("OPENAI_MODEL", "from-env")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, 4, cfg.SweepConcurrency)
	assert.Equal(t, 10*time.Second, cfg.AITimeout)
	assert.Equal(t, "from-env", cfg.OpenAIModel)
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.DatabaseDriver = "mysql"
	assert.Error(t, cfg.Validate())

	cfg = defaultConfig()
	cfg.Env = "production"
	assert.Error(t, cfg.Validate(), "placeholder secrets are refused in production")

	cfg.JWTSecret = "real"
	cfg.ReplyTokenSecret = "real"
	assert.NoError(t, cfg.Validate())

	cfg.DefaultTimeZone = "Not/AZone"
	assert.Error(t, cfg.Validate())
}
