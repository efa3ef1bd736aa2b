package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"ADVISOR_ORACLE_PROVIDER", "OPENAI_API_KEY", "GEMINI_API_KEY", "REDIS_ADDR", "ADVISOR_DB_PATH", "ADVISOR_ADDR"} {
		t.Setenv(k, "")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	def := DefaultConfig()
	assert.Equal(t, def.Server, cfg.Server)
	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.Equal(t, 90, cfg.Spending.WindowDays)
	assert.Empty(t, cfg.Oracle.APIKey)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
addr = ":9090"

[oracle]
provider = "gemini"
timeout = "3s"

[recommendations]
max_count = 3

[store]
driver = "memory"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "15s", cfg.Server.ReadTimeout, "unset keys keep defaults")
	assert.Equal(t, "gemini", cfg.Oracle.Provider)
	assert.Equal(t, 3*time.Second, Duration(cfg.Oracle.Timeout, time.Minute))
	assert.Equal(t, 3, cfg.Recommendations.MaxCount)
	assert.Equal(t, "memory", cfg.Store.Driver)
}

func TestLoad_EnvironmentWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("ADVISOR_ORACLE_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("OPENAI_API_KEY", "oa-key")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("ADVISOR_DB_PATH", "/tmp/recs.db")
	t.Setenv("ADVISOR_ADDR", ":7000")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.Oracle.Provider)
	assert.Equal(t, "gem-key", cfg.Oracle.APIKey)
	assert.Equal(t, "redis", cfg.Cache.Driver)
	assert.Equal(t, "localhost:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, "/tmp/recs.db", cfg.Store.Path)
	assert.Equal(t, ":7000", cfg.Server.Addr)
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)

	tests := map[string]string{
		"bad duration":     "[planner]\ncache_ttl = \"soon\"\n",
		"unknown store":    "[store]\ndriver = \"postgres\"\n",
		"unknown cache":    "[cache]\ndriver = \"memcached\"\n",
		"unknown provider": "[oracle]\nprovider = \"parrot\"\n",
		"bad toml":         "[server\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	cfg := DefaultConfig()
	cfg.Spending.RulesFile = "/etc/reward-advisor/rules.yaml"
	cfg.RateLimit.Capacity = 42
	require.NoError(t, Save(cfg, path))
	assert.True(t, Exists(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestDuration(t *testing.T) {
	assert.Equal(t, 5*time.Second, Duration("5s", time.Minute))
	assert.Equal(t, time.Minute, Duration("", time.Minute))
	assert.Equal(t, time.Minute, Duration("-1s", time.Minute))
	assert.Equal(t, time.Minute, Duration("junk", time.Minute))
}

func TestDirsFollowXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	t.Setenv("XDG_DATA_HOME", "/xdg/data")

	assert.Equal(t, "/xdg/config/reward-advisor", ConfigDir())
	assert.Equal(t, "/xdg/config/reward-advisor/config.toml", ConfigPath())
	assert.Equal(t, "/xdg/data/reward-advisor", DataDir())
}
