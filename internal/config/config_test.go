package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvDefaultsMatchDefaultRules(t *testing.T) {
	var cfg Server
	require.NoError(t, ParseEnv(&cfg))

	assert.Equal(t, DefaultRules(), cfg.Rules)
	assert.Equal(t, ":8888", cfg.Addr)
	assert.Equal(t, "nsulife-session", cfg.ServiceName)
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("NSU_MAX_TURNS", "3")
	t.Setenv("NSU_START_DELAY", "250ms")
	t.Setenv("NSU_SERVER_ID", "nsulife-session-node-b")

	var cfg Client
	require.NoError(t, ParseEnv(&cfg))

	assert.Equal(t, "nsulife-session-node-b", cfg.ServerID)
	assert.Equal(t, 3, cfg.Rules.MaxTurns)
	assert.Equal(t, 250*time.Millisecond, cfg.Rules.StartDelay)
}

func TestParseEnvError(t *testing.T) {
	t.Setenv("NSU_MAX_PLAYERS", "four")

	var cfg Server
	err := ParseEnv(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestRulesValidate(t *testing.T) {
	r := DefaultRules()
	assert.NoError(t, r.Validate())

	r.MaxPlayers = 5
	assert.Error(t, r.Validate())

	r = DefaultRules()
	r.MinPlayersToStart = 0
	assert.Error(t, r.Validate())

	r = DefaultRules()
	r.LowHealthHours = r.DayHours + 1
	assert.Error(t, r.Validate())
}

func TestLoadServerReadsDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("NSU_SERVER_ADDR=:9999\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("NSU_SERVER_ADDR") })

	cfg, err := LoadServer(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Addr)
}

func TestLoadClientMissingDotenvIsIgnored(t *testing.T) {
	cfg, err := LoadClient(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Equal(t, 8888, cfg.Port)
}
