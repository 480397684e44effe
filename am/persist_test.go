package am

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteConfig_RoundTripsThroughLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", ConfigFileName)

	cfg, err := ExampleConfig()
	require.NoError(t, err)
	require.NoError(t, WriteConfig(cfg, path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "your-org", loaded.Tracker.Owner)
	assert.Equal(t, "123940607", loaded.Board.RepoID)
	assert.Equal(t, cfg.Extract.Patterns, loaded.Extract.Patterns)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestWriteConfig_RotatesBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("# first\n"), DefaultFilePermissions))

	cfg, err := ExampleConfig()
	require.NoError(t, err)

	require.NoError(t, WriteConfig(cfg, path))
	first, err := os.ReadFile(path + ".back1")
	require.NoError(t, err)
	assert.Equal(t, "# first\n", string(first))

	require.NoError(t, WriteConfig(cfg, path))
	second, err := os.ReadFile(path + ".back2")
	require.NoError(t, err)
	assert.Equal(t, "# first\n", string(second))
}

func TestCheckFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("clean file", func(t *testing.T) {
		path := filepath.Join(dir, "clean.toml")
		require.NoError(t, os.WriteFile(path, []byte("[tracker]\nowner = \"o\"\nrepo = \"r\"\n"), DefaultFilePermissions))

		result, err := CheckFile(path)
		require.NoError(t, err)
		assert.True(t, result.OK())
	})

	t.Run("misspelled keys", func(t *testing.T) {
		path := filepath.Join(dir, "typo.toml")
		content := "[tracker]\nowner = \"o\"\nrepository = \"r\"\n\n[slak]\nbot_token = \"x\"\n"
		require.NoError(t, os.WriteFile(path, []byte(content), DefaultFilePermissions))

		result, err := CheckFile(path)
		require.NoError(t, err)
		assert.False(t, result.OK())
		assert.Contains(t, result.UnknownKeys, "tracker.repository")
		assert.Contains(t, result.UnknownKeys, "slak")
	})

	t.Run("invalid value", func(t *testing.T) {
		path := filepath.Join(dir, "invalid.toml")
		require.NoError(t, os.WriteFile(path, []byte("[storage]\nbackend = \"mongo\"\n"), DefaultFilePermissions))

		result, err := CheckFile(path)
		require.NoError(t, err)
		require.Error(t, result.Err)
		assert.Contains(t, result.Err.Error(), "storage.backend")
	})

	t.Run("unparseable", func(t *testing.T) {
		path := filepath.Join(dir, "broken.toml")
		require.NoError(t, os.WriteFile(path, []byte("[tracker\n"), DefaultFilePermissions))

		_, err := CheckFile(path)
		assert.Error(t, err)
	})
}
