package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolRecords/logger"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, logger.INFO, cfg.LogLevel)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Contains(t, cfg.Database.URI, "localhost:5432")
	assert.Equal(t, 3, cfg.Auth.MaxFailures)
	assert.Equal(t, 5*time.Minute, cfg.Auth.LockDuration)
	assert.Equal(t, "memory", cfg.Auth.LockoutStore)
	assert.Equal(t, "./reports", cfg.Reports.OutputDir)
	assert.Equal(t, DefaultTokenSecret, cfg.Auth.TokenSecret)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite3")
	t.Setenv("DATABASE_URI", "file:school.db")
	t.Setenv("AUTH_MAX_FAILURES", "5")
	t.Setenv("AUTH_LOCK_DURATION", "90s")
	t.Setenv("AUTH_LOCKOUT_STORE", "redis")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("SEED_ADMIN_EMAIL", "admin@colegio.edu")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "file:school.db", cfg.Database.URI)
	assert.Equal(t, 5, cfg.Auth.MaxFailures)
	assert.Equal(t, 90*time.Second, cfg.Auth.LockDuration)
	assert.Equal(t, "redis", cfg.Auth.LockoutStore)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "admin@colegio.edu", cfg.Seed.AdminEmail)
}
