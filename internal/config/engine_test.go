package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonical/microspi/spi/types"
)

func TestLoadDefaults(t *testing.T) {
	cfg := NewEngineConfig(filepath.Join(t.TempDir(), "engine.yaml"))
	require.NoError(t, cfg.Load())

	assert.Equal(t, types.EngineDuckDB, cfg.GetEngine())
	assert.Empty(t, cfg.Get().DSN)
}

func TestWriteAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")

	cfg := NewEngineConfig(path)
	require.NoError(t, cfg.SetEngine(types.EngineSQLite))
	cfg.SetDSN("file:test.db")
	cfg.SetInit([]string{"CREATE TABLE t (id INTEGER)"})
	require.NoError(t, cfg.Write())

	loaded := NewEngineConfig(path)
	require.NoError(t, loaded.Load())

	assert.Equal(t, cfg.Get(), loaded.Get())
}

func TestLoadEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine: sqlite\n"), 0644))

	t.Setenv("MICROSPI_ENGINE", "duckdb")
	t.Setenv("MICROSPI_DSN", "override.db")

	cfg := NewEngineConfig(path)
	require.NoError(t, cfg.Load())

	assert.Equal(t, types.EngineDuckDB, cfg.GetEngine())
	assert.Equal(t, "override.db", cfg.Get().DSN)
}

func TestLoadInvalid(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"Unknown engine", "engine: postgres\n"},
		{"Address without dqlite", "engine: duckdb\naddress: 127.0.0.1:9666\n"},
		{"Malformed yaml", "engine: [duckdb\n"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "engine.yaml")
			require.NoError(t, os.WriteFile(path, []byte(c.content), 0644))

			cfg := NewEngineConfig(path)
			assert.Error(t, cfg.Load())
			assert.Equal(t, types.EngineDuckDB, cfg.GetEngine())
		})
	}
}

func TestSetEngineInvalid(t *testing.T) {
	cfg := NewEngineConfig("")
	assert.Error(t, cfg.SetEngine("postgres"))
	assert.Equal(t, types.EngineDuckDB, cfg.GetEngine())
}

func TestGetReturnsCopy(t *testing.T) {
	cfg := NewEngineConfig("")
	cfg.SetInit([]string{"SELECT 1"})

	got := cfg.Get()
	got.Init[0] = "SELECT 2"

	assert.Equal(t, []string{"SELECT 1"}, cfg.Get().Init)
}

func TestValidateAddress(t *testing.T) {
	cfg := types.EngineConfig{Engine: types.EngineDqlite, Address: "127.0.0.1:9666"}
	assert.NoError(t, Validate(cfg))

	cfg.Address = "127.0.0.1"
	assert.Error(t, Validate(cfg))
}
