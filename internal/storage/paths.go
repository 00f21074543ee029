// Package storage persists engine artifacts that outlive a process: the
// self-play game archive and cached evaluation weight files.
package storage

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "gm-bit"

// DataDir returns the platform data directory for the engine, creating it
// on first use.
//   - macOS:   ~/Library/Application Support/gm-bit/
//   - Windows: %APPDATA%/gm-bit/
//   - other:   $XDG_DATA_HOME or ~/.local/share/gm-bit/
func DataDir() (string, error) {
	var base string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, "Library", "Application Support")

	case "windows":
		base = os.Getenv("APPDATA")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			base = filepath.Join(home, "AppData", "Roaming")
		}

	default:
		base = os.Getenv("XDG_DATA_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			base = filepath.Join(home, ".local", "share")
		}
	}

	dir := filepath.Join(base, appName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// DefaultArchiveDir is where the self-play archive lives unless overridden.
func DefaultArchiveDir() (string, error) {
	return dataSubDir("selfplay")
}

// DefaultCacheDir holds engine-managed blobs such as the cached
// evaluation weight file.
func DefaultCacheDir() (string, error) {
	return dataSubDir("cache")
}

func dataSubDir(name string) (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	sub := filepath.Join(dir, name)
	if err := os.MkdirAll(sub, 0o755); err != nil {
		return "", err
	}
	return sub, nil
}
