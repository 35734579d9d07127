package theme

import (
	"testing"

	"github.com/grovetools/deckclock/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewThemeWithName(t *testing.T) {
	assert.Equal(t, "terminal", NewThemeWithName("Terminal").Name)
	assert.Equal(t, "kanagawa", NewThemeWithName(" kanagawa ").Name)
	assert.Equal(t, defaultThemeName, NewThemeWithName("solarized").Name)
}

func TestGetThemeNameFromEnv(t *testing.T) {
	t.Setenv("DECKCLOCK_THEME", "TERMINAL")
	assert.Equal(t, "terminal", getThemeName())
}

func TestGetThemeNameFromConfig(t *testing.T) {
	home := testutil.IsolateHome(t)
	t.Setenv("DECKCLOCK_THEME", "")
	testutil.WriteConfig(t, home, "tui:\n  theme: terminal\n")
	assert.Equal(t, "terminal", getThemeName())
}
