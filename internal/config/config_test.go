package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Workflow.MaxRewriteAttempts)
	assert.Equal(t, 2, cfg.Conductor.MaxTopics)
	assert.Equal(t, 3000, cfg.LLM.MaxOutputTokens)
	assert.Equal(t, 3*time.Minute, cfg.Workflow.NodeTimeout)
	assert.Contains(t, cfg.DSN(), "dbname=seo_agents")
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
db:
  host: db.internal
  port: 6543
scholar:
  min_volume: 50
workflow:
  node_timeout: 30s
`), 0o600))
	t.Setenv("SEOAGENTS_LLM_MODEL", "gpt-4.1")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, 6543, cfg.DB.Port)
	assert.Equal(t, 50, cfg.Scholar.MinVolume)
	assert.Equal(t, 30*time.Second, cfg.Workflow.NodeTimeout)
	assert.Equal(t, "gpt-4.1", cfg.LLM.Model)
}

func TestLoadConfig_RejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"no topics":          "conductor:\n  max_topics: 0\n",
		"negative rewrites":  "workflow:\n  max_rewrite_attempts: -1\n",
		"rewrites above cap": "workflow:\n  max_rewrite_attempts: 5\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
