package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "arena-ledger", cfg.Kafka.Topic)
	assert.Equal(t, "cipher-arena", cfg.Auth.Issuer)
	assert.Equal(t, 5, cfg.Game.HintCost)
	assert.Equal(t, 25, cfg.Game.SabotagePercent)
	assert.Equal(t, 3, cfg.Game.TopPlayersLimit)
	assert.Equal(t, 5*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, 10*time.Minute, cfg.Presence.OfflineAfter)
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("ARENA_DB_PASSWORD", "s3cret")
	t.Setenv("ARENA_AUTH_SECRET", "token-signing-key")

	path := writeConfig(t, `
postgres:
  password: ${ARENA_DB_PASSWORD}
auth:
  secret: ${ARENA_AUTH_SECRET}
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Postgres.Password)
	assert.Equal(t, "token-signing-key", cfg.Auth.Secret)
}

func TestLoadRejectsSabotagePercentOutOfRange(t *testing.T) {
	path := writeConfig(t, "game:\n  sabotage_percent: 150\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sabotage_percent")
}

func TestLoadRejectsNegativeHintCost(t *testing.T) {
	path := writeConfig(t, "game:\n  hint_cost: -1\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hint_cost")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Sync.Enabled)
	assert.True(t, cfg.Presence.Enabled)
	assert.Equal(t, 5, cfg.Game.HintCost)
}

func TestPostgresConnectionString(t *testing.T) {
	pc := PostgresConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "arena",
		Password: "pw",
		Database: "arena",
	}

	assert.Equal(t,
		"postgres://arena:pw@db.internal:5433/arena?sslmode=disable",
		pc.ConnectionString(),
	)
}
