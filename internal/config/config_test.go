package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_ParsesAndDefaults(t *testing.T) {
	t.Setenv("ADDR", ":9090")
	t.Setenv("LOG_DIR", "./_testlogs")
	t.Setenv("STORE", "sqlite")
	t.Setenv("CHECK_INTERVAL", "30s")
	t.Setenv("RETRY_ATTEMPTS", "3")
	t.Setenv("PUBLIC_RPM", "111")

	cfg, err := FromEnv("")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "./_testlogs", cfg.LogDir)
	assert.Equal(t, StoreSQLite, cfg.Store)
	assert.Equal(t, 30*time.Second, cfg.CheckInterval)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, 111, cfg.PublicRPM)

	// untouched defaults
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.LogConsole)
	assert.Equal(t, "./config.yaml", cfg.ConfigPath)
	assert.Equal(t, 10*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, time.Second, cfg.RetryBackoff)
	assert.Equal(t, 5, cfg.ProbeConcurrency)
	assert.Equal(t, 5, cfg.PersistConcurrency)
	assert.Equal(t, 60, cfg.PublicBurst)
}

func TestFromEnv_DotenvDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	dotenv := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("POSTGRES_DB=fromfile\nADDR=:1111\n"), 0o600))
	t.Setenv("ADDR", ":2222")
	// Registers cleanup for the variable godotenv is about to set.
	t.Setenv("POSTGRES_DB", "")
	require.NoError(t, os.Unsetenv("POSTGRES_DB"))

	cfg, err := FromEnv(dotenv)
	require.NoError(t, err)
	assert.Equal(t, ":2222", cfg.Addr)
	assert.Equal(t, "fromfile", cfg.PostgresDB)
}

func TestFromEnv_RejectsUnknownStore(t *testing.T) {
	t.Setenv("STORE", "mongo")
	_, err := FromEnv("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE")
}

func TestPostgresDSN(t *testing.T) {
	c := Config{
		PostgresUsername: "uptimers",
		PostgresPassword: "p@ss/word",
		PostgresHost:     "db:5432",
		PostgresDB:       "uptimers",
	}
	dsn := c.PostgresDSN()
	assert.True(t, strings.HasPrefix(dsn, "postgres://uptimers:"), dsn)
	assert.Contains(t, dsn, "@db:5432/uptimers?pool_max_conns=5")
	assert.NotContains(t, c.RedactedDSN(), "p@ss")

	c.DatabaseURL = "postgres://x@y/z"
	assert.Equal(t, "postgres://x@y/z", c.PostgresDSN())
}
