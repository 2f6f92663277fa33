package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadMaster(t *testing.T) {
	path := writeConfig(t, "weights_path: /var/lib/dagtrain/weights.bin\nport: 7070\n")

	cfg, err := LoadMaster(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/dagtrain/weights.bin", cfg.WeightsPath)
	assert.Equal(t, 7070, cfg.Port)
}

func TestLoadWorker(t *testing.T) {
	path := writeConfig(t, "host: 127.0.0.1\nport: 7070\nmodel: mlp\nthreads: 4\n")

	cfg, err := LoadWorker(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "mlp", cfg.Model)
	assert.Equal(t, 4, cfg.Threads)
}

func TestLoadMasterMissingFile(t *testing.T) {
	_, err := LoadMaster(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}
