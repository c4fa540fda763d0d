package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/autobip/internal/config"
	"github.com/ibeckermayer/autobip/internal/types"
)

func clearKeys(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "")
	t.Setenv("AUTOBIP_CONFIG_DIR", t.TempDir())
}

func TestOpenCreatesDefaultConfig(t *testing.T) {
	clearKeys(t)
	path := filepath.Join(t.TempDir(), "config.toml")

	env, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer env.Close()

	_, err = os.Stat(path)
	require.NoError(t, err)
	assert.Nil(t, env.Journal)
	assert.Equal(t, "SaaS & Developer Tools", env.Config.Trends.Industry)
}

func TestOpenWithJournalDegradesWithoutKey(t *testing.T) {
	clearKeys(t)
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Journal.Enabled = true
	cfg.Journal.Path = filepath.Join(dir, "journal.db")
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, cfg.SaveTo(path))

	env, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer env.Close()
	require.NotNil(t, env.Journal)

	env.App.ImportActivities([]types.Activity{{ID: "1", Description: "Added dark mode"}})
	d, err := env.App.GenerateDraftFromSelection(context.Background(), []string{"1"}, types.StrategyStandardUpdate)
	require.NoError(t, err)
	assert.Equal(t, "API Key Missing", d.Title)

	// nothing reached the backend, so nothing was journaled
	exchanges, err := env.Journal.RecentExchanges(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Empty(t, exchanges)
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	clearKeys(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[log]\nlevel = \"loud\"\n"), 0600))

	_, err := Open(context.Background(), path)
	assert.ErrorContains(t, err, "log.level")
}
