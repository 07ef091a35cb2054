package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "sqlite3", cfg.DatabaseDriver)
	assert.Equal(t, 50, cfg.HistoryLimit)
	assert.True(t, cfg.AI.Enabled)
	assert.Equal(t, "gemini", cfg.AI.Provider)
	assert.Equal(t, 30*time.Second, cfg.AI.Timeout)
	assert.Equal(t, 200, cfg.AI.MinCompleteChars)
	assert.Equal(t, 50, cfg.AI.MinPartialChars)
	assert.True(t, cfg.AI.RetryFailedInit)
	assert.False(t, cfg.AI.InterpretHexagram)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("AI_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("AI_TIMEOUT", "5s")
	t.Setenv("RNG_SEED", "42")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "sk-test", cfg.AI.APIKey())
	assert.Equal(t, 5*time.Second, cfg.AI.Timeout)
	assert.Equal(t, int64(42), cfg.RNGSeed)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"driver":    {"DATABASE_DRIVER", "postgres"},
		"provider":  {"AI_PROVIDER", "llama"},
		"log level": {"LOG_LEVEL", "verbose"},
		"timeout":   {"AI_TIMEOUT", "soon"},
		"limit":     {"HISTORY_LIMIT", "0"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	level, err := ParseLogLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	_, err = ParseLogLevel("loud")
	assert.Error(t, err)
}
