// Package xdg locates sheetlink's directories: config.yaml lives in the config dir and
// the chat history in the state dir. Both are created private to the user.
package xdg

import (
	"os"
	"path/filepath"
)

const app = "sheetlink"

// ConfigDir is $XDG_CONFIG_HOME/sheetlink, or ~/.config/sheetlink.
func ConfigDir() (string, error) {
	return ensure("XDG_CONFIG_HOME", ".config")
}

// StateDir is $XDG_STATE_HOME/sheetlink, or ~/.local/state/sheetlink.
func StateDir() (string, error) {
	return ensure("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func ensure(env, fallback string) (string, error) {
	base := os.Getenv(env)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, fallback)
	}
	dir := filepath.Join(base, app)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}
