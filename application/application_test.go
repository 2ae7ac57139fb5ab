package application

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolRecords/config"
	"schoolRecords/database"
	"schoolRecords/logger"
)

func testConfig(t *testing.T, secret string) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		Database: config.DatabaseConfig{Driver: database.DriverSQLite, URI: filepath.Join(dir, "school.db")},
		Auth: config.AuthConfig{
			MaxFailures:  3,
			LockDuration: time.Minute,
			BcryptCost:   4,
			TokenSecret:  secret,
			TokenTTL:     time.Hour,
			LockoutStore: lockoutMemory,
		},
		Reports: config.ReportsConfig{OutputDir: filepath.Join(dir, "reports")},
		Seed:    config.SeedConfig{AdminEmail: "admin@colegio.edu", AdminPassword: "admin123"},
	}
}

func TestConfigureWithoutBot(t *testing.T) {
	var buf bytes.Buffer
	app := NewApplication()
	ctx := context.Background()

	require.NoError(t, app.Configure(ctx, testConfig(t, "s3cr3t"), logger.New(&buf, logger.DEBUG)))
	t.Cleanup(func() { _ = app.Close() })

	assert.Nil(t, app.Bot)
	app.Run(ctx)

	session, err := app.Auth.Authenticate(ctx, "admin@colegio.edu", "admin123")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)

	out := buf.String()
	assert.Contains(t, out, "services: seeded role admin")
	assert.Contains(t, out, "bot is disabled")
	assert.NotContains(t, out, "AUTH_TOKEN_SECRET")
	for _, doubled := range []string{"services.services", "auth.auth", "db.store", "notify.email", "reports.reports"} {
		assert.NotContains(t, out, doubled)
	}
}

func TestConfigureWarnsAboutDefaultSecret(t *testing.T) {
	var buf bytes.Buffer
	app := NewApplication()

	require.NoError(t, app.Configure(context.Background(), testConfig(t, config.DefaultTokenSecret), logger.New(&buf, logger.DEBUG)))
	t.Cleanup(func() { _ = app.Close() })

	assert.Contains(t, buf.String(), "[WARNING] AUTH_TOKEN_SECRET is the built-in default")
}

func TestConfigureRejectsUnknownLockoutStore(t *testing.T) {
	cfg := testConfig(t, "s3cr3t")
	cfg.Auth.LockoutStore = "memcached"

	app := NewApplication()
	err := app.Configure(context.Background(), cfg, logger.New(&bytes.Buffer{}, logger.DEBUG))
	assert.ErrorContains(t, err, `unknown lockout store "memcached"`)
}
