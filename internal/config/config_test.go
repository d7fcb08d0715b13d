package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Missing file", func(t *testing.T) {
		cfg, err := LoadConfig(filepath.Join(t.TempDir(), DefaultPath))
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("File and environment", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "grapher.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
format: DOT
direction: TB
exclude: ["test_*", "*::tests::*"]
highlight: [main]
workspace_only: true
workers: 2
db: graph.db
`), 0o644))
		t.Setenv("RUST_GRAPHER_THEME", "dark")
		t.Setenv("RUST_GRAPHER_WORKERS", "8")

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "dot", cfg.Format)
		assert.Equal(t, "TB", cfg.Direction)
		assert.Equal(t, "dark", cfg.Theme)
		assert.Equal(t, []string{"test_*", "*::tests::*"}, cfg.Exclude)
		assert.Equal(t, []string{"main"}, cfg.Highlight)
		assert.True(t, cfg.WorkspaceOnly)
		assert.Equal(t, 8, cfg.Workers)
		assert.Equal(t, "graph.db", cfg.DB)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("Invalid", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("format: [unclosed"), 0o644))
		_, err := LoadConfig(path)
		assert.Error(t, err)

		t.Setenv("RUST_GRAPHER_WORKERS", "many")
		_, err = LoadConfig(filepath.Join(t.TempDir(), "none.yaml"))
		assert.Error(t, err)
	})
}
