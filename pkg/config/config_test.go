package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	cfg := New()
	assert.Equal(t, "kgraph", cfg.TableName)
	assert.Equal(t, "EntityIndex", cfg.EntityIndexName)
	assert.Equal(t, "ReverseIndex", cfg.ReverseIndexName)
	assert.Equal(t, Development, cfg.Environment)
	assert.True(t, cfg.EnableMetrics)
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("TABLE_NAME", "kgraph-prod")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("ENABLE_METRICS", "false")

	cfg := New()
	assert.Equal(t, "kgraph-prod", cfg.TableName)
	assert.Equal(t, Production, cfg.Environment)
	assert.False(t, cfg.EnableMetrics)
}

func TestLoadYAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "local.yaml")
	content := []byte("table_name: kgraph-local\nserver_address: \":9090\"\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "kgraph-local", cfg.TableName)
	assert.Equal(t, ":9090", cfg.ServerAddress)
	// Untouched values keep their env defaults.
	assert.Equal(t, "EntityIndex", cfg.EntityIndexName)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
