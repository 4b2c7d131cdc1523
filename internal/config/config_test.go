package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ".codegraph/codegraph.db", cfg.DatabaseDSN)
	assert.Equal(t, 30*time.Second, cfg.ParseTimeout)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "codegraph.toml")
	content := "database_dsn = \"/tmp/custom.db\"\nworkers = 4\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.db", cfg.DatabaseDSN)
	assert.Equal(t, 4, cfg.Workers)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "codegraph.toml")
	require.NoError(t, os.WriteFile(path, []byte("database_dsn = \"/tmp/file.db\"\n"), 0o644))

	t.Setenv("CODEGRAPH_DATABASE_DSN", "/tmp/env.db")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/env.db", cfg.DatabaseDSN)
}
