// Package paths provides XDG-compliant path resolution for deckclock.
//
// Resolution order:
// 1. DECKCLOCK_HOME (portable root) → $DECKCLOCK_HOME/{config,state,run}
// 2. XDG env vars → $XDG_*_HOME/deckclock
// 3. Platform defaults → ~/.config/deckclock, ~/.local/state/deckclock
package paths

import (
	"os"
	"path/filepath"
)

const appName = "deckclock"

// homeOverride returns $DECKCLOCK_HOME/<sub> when the portable root is set.
func homeOverride(sub string) string {
	if root := os.Getenv("DECKCLOCK_HOME"); root != "" {
		return filepath.Join(root, sub)
	}
	return ""
}

// xdgDir resolves an XDG base directory, falling back to ~/<fallback...>.
func xdgDir(envVar string, fallback ...string) string {
	if dir := os.Getenv(envVar); dir != "" {
		return filepath.Join(dir, appName)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	parts := append([]string{homeDir}, fallback...)
	return filepath.Join(append(parts, appName)...)
}

// ConfigDir returns the directory holding deckclock.yml / deckclock.toml.
func ConfigDir() string {
	if dir := homeOverride("config"); dir != "" {
		return dir
	}
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// StateDir returns the directory for runtime state and logs.
func StateDir() string {
	if dir := homeOverride("state"); dir != "" {
		return dir
	}
	return xdgDir("XDG_STATE_HOME", ".local", "state")
}

// LogDir returns the directory daily log files are written to.
func LogDir() string {
	state := StateDir()
	if state == "" {
		return ""
	}
	return filepath.Join(state, "logs")
}

// RuntimeDir returns the directory for the status socket.
// Uses XDG_RUNTIME_DIR when available (Linux), falls back to StateDir (macOS).
func RuntimeDir() string {
	if dir := homeOverride("run"); dir != "" {
		return dir
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, appName)
	}
	return StateDir()
}

// SocketPath returns the path of the status API unix socket.
func SocketPath() string {
	return filepath.Join(RuntimeDir(), "deckclock.sock")
}

// PIDFile returns the path recording which instance owns the status socket.
func PIDFile() string {
	return filepath.Join(StateDir(), "deckclock.pid")
}

// EnsureDirs creates all deckclock directories if they don't exist.
func EnsureDirs() error {
	for _, dir := range []string{ConfigDir(), StateDir(), LogDir(), RuntimeDir()} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
