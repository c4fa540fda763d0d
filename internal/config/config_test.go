package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/autobip/internal/types"
)

func TestLoadOrDefaultWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, found, err := LoadOrDefault(path)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, "gemini-2.5-flash", cfg.Analysis.TextModel)
	assert.Equal(t, 5*time.Second, cfg.Trends.InitialDelay.Duration)
	assert.Equal(t, types.ToneHumbleBuilder, cfg.Analysis.DefaultTone)
}

func TestLoadFromKeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := strings.TrimSpace(`
version = 1

[analysis]
default_tone = "Contrarian"
request_timeout = "45s"

[trends]
industry = "Fintech"
initial_delay = "1m"
schedule = "@every 1h"
`)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, types.ToneContrarian, cfg.Analysis.DefaultTone)
	assert.Equal(t, 45*time.Second, cfg.Analysis.RequestTimeout.Duration)
	assert.Equal(t, "Fintech", cfg.Trends.Industry)
	assert.Equal(t, time.Minute, cfg.Trends.InitialDelay.Duration)
	assert.Equal(t, "@every 1h", cfg.Trends.Schedule)
	// untouched keys keep their defaults
	assert.Equal(t, "SaaS & AI", cfg.Trends.ResearchTopic)
	assert.Equal(t, "127.0.0.1:8787", cfg.Server.Addr)
}

func TestLoadFromRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[trends]\ninitial_delay = \"soon\"\n"), 0o644))

	_, _, err := LoadOrDefault(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Trends.Schedule = "0 9 * * *"
	cfg.Trends.InitialDelay = Duration{30 * time.Second}

	require.NoError(t, cfg.SaveTo(path))

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "0 9 * * *", loaded.Trends.Schedule)
	assert.Equal(t, 30*time.Second, loaded.Trends.InitialDelay.Duration)
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Analysis.TextModel = ""
	cfg.Analysis.DefaultTone = "Sarcastic"
	cfg.Server.Addr = ""
	cfg.Log.Level = "loud"
	cfg.Trends.Schedule = "every tuesday"

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "analysis.text_model")
	assert.Contains(t, msg, "Sarcastic")
	assert.Contains(t, msg, "server.addr")
	assert.Contains(t, msg, "log.level")
	assert.Contains(t, msg, "trends.schedule")
}

func TestValidateDefaults(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestApplyEnvPrefersGeminiKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("API_KEY", "generic-key")
	t.Setenv("AUTOBIP_ADDR", "0.0.0.0:9000")

	cfg := Default()
	cfg.ApplyEnv()

	assert.Equal(t, "gemini-key", cfg.Analysis.APIKey)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
}

func TestApplyEnvFallsBackToAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "generic-key")

	cfg := Default()
	cfg.ApplyEnv()

	assert.Equal(t, "generic-key", cfg.Analysis.APIKey)
}

func TestJournalPathOverride(t *testing.T) {
	cfg := Default()
	cfg.Journal.Path = "/tmp/autobip-test.db"

	path, err := cfg.JournalPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/autobip-test.db", path)
}
