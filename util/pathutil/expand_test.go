package pathutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("DECKCLOCK_TEST_DIR", "/var/run/dc")

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"~", home},
		{"~/logs/plugin.log", filepath.Join(home, "logs", "plugin.log")},
		{"$DECKCLOCK_TEST_DIR/status.sock", "/var/run/dc/status.sock"},
		{"/tmp/x.sock", "/tmp/x.sock"},
	}
	for _, tt := range tests {
		got, err := Expand(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestExpandRelative(t *testing.T) {
	got, err := Expand("status.sock")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
	assert.Equal(t, "status.sock", filepath.Base(got))
}

func TestMustExpand(t *testing.T) {
	t.Setenv("HOME", "/home/ada")
	assert.Equal(t, "/home/ada/dc.sock", MustExpand("~/dc.sock"))
}
