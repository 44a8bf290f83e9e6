package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Server.Addr, cfg.Server.Addr)
	assert.Equal(t, 400, cfg.Selection.LargeSelection)
	assert.Equal(t, 30*time.Minute, cfg.Editing.PendingTTL)
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
ai:
  provider: openai
  model: gpt-4o-mini
  api_key: from-file
selection:
  word_ratio: 0.5
  backup_ttl: 90s
`), 0o644))

	t.Setenv("REGDRAFT_API_KEY", "from-env")
	t.Setenv("REGDRAFT_EMBEDDING_DIMENSION", "1536")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "openai", cfg.AI.Provider)
	assert.Equal(t, "from-env", cfg.AI.APIKey)
	assert.Equal(t, "from-env", cfg.Embedding.APIKey)
	assert.Equal(t, 1536, cfg.Embedding.Dimension)
	assert.Equal(t, 0.5, cfg.Selection.WordRatio)
	assert.Equal(t, 90*time.Second, cfg.Selection.BackupTTL)
	// untouched keys keep their defaults
	assert.Equal(t, 10, cfg.Selection.MinSelection)
}

func TestLoadConfig_BadEnvNumber(t *testing.T) {
	t.Setenv("REGDRAFT_GENERATION_RPS", "fast")
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "REGDRAFT_GENERATION_RPS")
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o644))
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "parse config")
}
