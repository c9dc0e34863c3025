package sys

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOS(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")

	_, err := DefaultOS(dir, false)
	assert.Error(t, err)

	fs, err := DefaultOS(dir, true)
	require.NoError(t, err)
	assert.DirExists(t, fs.DatabaseDir)
	assert.Equal(t, filepath.Join(dir, "engine.yaml"), fs.ConfigPath())
	assert.Equal(t, filepath.Join(dir, "database", "sqlite.db"), fs.DatabasePath("sqlite"))

	_, err = DefaultOS(dir, false)
	assert.NoError(t, err)
}
