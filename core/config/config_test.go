package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "standalone", cfg.Server.Role)
	assert.Equal(t, "pebble", cfg.Index.Driver)
	assert.Equal(t, "mysql", cfg.Index.Database.Driver)
	assert.Equal(t, "MOD", cfg.Shard.Method)
	assert.Equal(t, 1, cfg.Shard.Count)
	assert.Equal(t, "alfresco", cfg.Tracker.Core)
	assert.Equal(t, 1000, cfg.Tracker.BatchSize)
	assert.Zero(t, cfg.Tracker.HoleRetention)
	assert.Equal(t, "@every 10s", cfg.Tracker.Cron.Spec("metadata"))
	assert.Empty(t, cfg.Tracker.Cron.Spec("unknown"))
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("SHARD_METHOD", "DB_ID_RANGE")
	t.Setenv("SHARD_RANGE", "0-1000")
	t.Setenv("TRACKER_HOLE_RETENTION", "1h")
	t.Setenv("TRACKER_RATE_LIMIT", "2.5")
	t.Setenv("INDEX_DATABASE_DRIVER", "sqlite")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "DB_ID_RANGE", cfg.Shard.Method)
	assert.Equal(t, "0-1000", cfg.Shard.Range)
	assert.Equal(t, time.Hour, cfg.Tracker.HoleRetention)
	assert.InDelta(t, 2.5, cfg.Tracker.RateLimit, 0.001)
	assert.Equal(t, "sqlite", cfg.Index.Database.Driver)
	assert.Equal(t, "mysql", cfg.Database.Driver)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TRACKER_CORE=archive\nSERVER_ROLE=slave\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("TRACKER_CORE")
		os.Unsetenv("SERVER_ROLE")
	})

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "archive", cfg.Tracker.Core)
	assert.False(t, cfg.Server.Tracks())
}
