// Package testutil holds helpers and fakes shared by package tests.
package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// RandomString generates a random hex string of the given length.
func RandomString(length int) string {
	bytes := make([]byte, (length+1)/2)
	if _, err := rand.Read(bytes); err != nil {
		panic(err)
	}
	return hex.EncodeToString(bytes)[:length]
}

// IsolateHome points DECKCLOCK_HOME at a fresh temporary directory so tests
// never read or write the user's real config, logs or socket.
func IsolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("DECKCLOCK_HOME", home)
	t.Setenv("DECKCLOCK_LOG_LEVEL", "")
	return home
}

// WriteConfig writes content as deckclock.yml in the isolated config dir and
// returns its path.
func WriteConfig(t *testing.T, home, content string) string {
	t.Helper()
	dir := filepath.Join(home, "config")
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, "deckclock.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
