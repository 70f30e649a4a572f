package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_MissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	s, err := Open(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), s.Get())
}

func TestUpdate_PersistsAcrossOpen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")
	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.SetIdentity("Alice", "tok"))
	require.NoError(t, s.SetVolume(0.25))

	reopened, err := Open(path)
	require.NoError(t, err)
	got := reopened.Get()
	assert.Equal(t, "Alice", got.Name)
	assert.Equal(t, "tok", got.Token)
	assert.InDelta(t, 0.25, got.Volume, 1e-9)
	assert.Equal(t, defaultServer, got.Server)
}

func TestSetVolume_Clamps(t *testing.T) {
	t.Parallel()

	s, err := Open(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, err)

	require.NoError(t, s.SetVolume(3))
	assert.InDelta(t, 1.0, s.Get().Volume, 1e-9)
	require.NoError(t, s.SetVolume(-1))
	assert.InDelta(t, 0.0, s.Get().Volume, 1e-9)
}

func TestOpen_InvalidYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("volume: [oops"), 0o600))

	_, err := Open(path)
	assert.Error(t, err)
}

func TestOpen_ClampsStoredVolume(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: Bob\nvolume: 7\nserver: \"\"\n"), 0o600))

	s, err := Open(path)
	require.NoError(t, err)
	got := s.Get()
	assert.Equal(t, "Bob", got.Name)
	assert.InDelta(t, 1.0, got.Volume, 1e-9)
	assert.Equal(t, defaultServer, got.Server)
}
