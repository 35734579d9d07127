package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortableHomeWins(t *testing.T) {
	root := t.TempDir()
	t.Setenv("DECKCLOCK_HOME", root)
	t.Setenv("XDG_CONFIG_HOME", "/elsewhere")

	assert.Equal(t, filepath.Join(root, "config"), ConfigDir())
	assert.Equal(t, filepath.Join(root, "state"), StateDir())
	assert.Equal(t, filepath.Join(root, "state", "logs"), LogDir())
	assert.Equal(t, filepath.Join(root, "run", "deckclock.sock"), SocketPath())
}

func TestXDGVariables(t *testing.T) {
	t.Setenv("DECKCLOCK_HOME", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	t.Setenv("XDG_STATE_HOME", "/xdg/state")
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")

	assert.Equal(t, "/xdg/config/deckclock", ConfigDir())
	assert.Equal(t, "/xdg/state/deckclock", StateDir())
	assert.Equal(t, "/run/user/1000/deckclock/deckclock.sock", SocketPath())
}

func TestEnsureDirs(t *testing.T) {
	root := t.TempDir()
	t.Setenv("DECKCLOCK_HOME", root)

	require.NoError(t, EnsureDirs())
	assert.DirExists(t, filepath.Join(root, "config"))
	assert.DirExists(t, filepath.Join(root, "state", "logs"))
	assert.DirExists(t, filepath.Join(root, "run"))
}
