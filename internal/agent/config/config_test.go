package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsAndRequiresWorkspaceRoot(t *testing.T) {
	t.Setenv("AGENTCORE_WORKSPACE_ROOT", "/workspace")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Limits.IterPerStep)
	assert.Equal(t, CompressionBalanced, cfg.Compression)
	assert.Equal(t, "/workspace", cfg.WorkspaceRoot)
}

func TestLoadMissingWorkspaceRootErrors(t *testing.T) {
	t.Setenv("AGENTCORE_WORKSPACE_ROOT", "")
	_, err := Load("")
	require.Error(t, err)
}

func TestLoadMergesYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
workspace_root: /from-yaml
cache:
  capacity: 512
llm:
  model: gpt-test
`), 0o644))

	t.Setenv("AGENTCORE_CACHE_CAPACITY", "1024")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/from-yaml", cfg.WorkspaceRoot)
	assert.Equal(t, "gpt-test", cfg.LLM.Model)
	assert.Equal(t, 1024, cfg.Cache.Capacity, "env override must win over yaml")
}

func TestLoadRejectsInvalidCompressionLevel(t *testing.T) {
	t.Setenv("AGENTCORE_WORKSPACE_ROOT", "/workspace")
	t.Setenv("AGENTCORE_COMPRESSION_LEVEL", "extreme")
	_, err := Load("")
	require.Error(t, err)
}

func TestLoadDefaultsProviderToAnthropic(t *testing.T) {
	t.Setenv("AGENTCORE_WORKSPACE_ROOT", "/workspace")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
}

func TestLoadRejectsInvalidProvider(t *testing.T) {
	t.Setenv("AGENTCORE_WORKSPACE_ROOT", "/workspace")
	t.Setenv("AGENTCORE_LLM_PROVIDER", "mistral")
	_, err := Load("")
	require.Error(t, err)
}

func TestCacheConfigTTLConvertsSecondsToDuration(t *testing.T) {
	cfg := CacheConfig{TTLS: 300}
	assert.Equal(t, 300e9, float64(cfg.TTL()))
}
