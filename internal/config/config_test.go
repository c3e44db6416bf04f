package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/rollcall/internal/config"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg := config.FromEnv()

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, ":9090", cfg.GRPCAddr)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "./data/rollcall.db", cfg.DBPath)
	assert.Equal(t, 0.6, cfg.MatchThreshold)
	assert.Equal(t, 30*time.Second, cfg.VerifyWindow)
	assert.Equal(t, 3, cfg.EnrollSamples)
	assert.Equal(t, 2, cfg.EnrollMinSamples)
	assert.Equal(t, 5*time.Second, cfg.MongoTimeout)
	assert.Equal(t, "rollcall.feedback", cfg.FeedbackSubject)
	assert.False(t, cfg.ReverifyConfirmed)
	assert.Empty(t, cfg.MongoURI)
	assert.Zero(t, cfg.ExportIntervalMinutes)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("ROLLCALL_ENV", "PROD")
	t.Setenv("ROLLCALL_HTTP_ADDR", "")
	t.Setenv("ROLLCALL_MATCH_THRESHOLD", "0.45")
	t.Setenv("ROLLCALL_VERIFY_WINDOW_SECONDS", "10")
	t.Setenv("ROLLCALL_REVERIFY_CONFIRMED", "1")
	t.Setenv("ROLLCALL_READER_MODULES", " room-101, ,room-102 ")
	t.Setenv("ROLLCALL_LOG_FORMAT", "json")

	cfg := config.FromEnv()

	assert.Equal(t, "prod", cfg.Env)
	assert.Empty(t, cfg.HTTPAddr, "empty address disables the listener")
	assert.Equal(t, 0.45, cfg.MatchThreshold)
	assert.Equal(t, 10*time.Second, cfg.VerifyWindow)
	assert.True(t, cfg.ReverifyConfirmed)
	assert.Equal(t, []string{"room-101", "room-102"}, cfg.ReaderModules)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestFromEnv_FailSoft(t *testing.T) {
	t.Setenv("ROLLCALL_ENV", "staging")
	t.Setenv("ROLLCALL_MATCH_THRESHOLD", "close")
	t.Setenv("ROLLCALL_ENROLL_SAMPLES", "-4")
	t.Setenv("ROLLCALL_LOG_LEVEL", "loud")

	cfg := config.FromEnv()

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, 0.6, cfg.MatchThreshold)
	assert.Equal(t, 3, cfg.EnrollSamples)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("ROLLCALL_DB_PATH=/var/lib/rollcall.db\nROLLCALL_MONGO_DB=fromfile\n"), 0o600))

	t.Setenv("ROLLCALL_MONGO_DB", "fromenv")
	t.Setenv("ROLLCALL_DB_PATH", "")
	require.NoError(t, os.Unsetenv("ROLLCALL_DB_PATH"))

	require.NoError(t, config.LoadDotEnv(path))
	t.Cleanup(func() { _ = os.Unsetenv("ROLLCALL_DB_PATH") })

	cfg := config.FromEnv()
	assert.Equal(t, "/var/lib/rollcall.db", cfg.DBPath)
	assert.Equal(t, "fromenv", cfg.MongoDB, "existing variables win over the file")
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	assert.NoError(t, config.LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}
