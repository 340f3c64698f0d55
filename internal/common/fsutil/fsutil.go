// Package fsutil resolves the user-configured directories the service reads
// artifacts from and caches them in.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Disabled is the directory value that turns a cache off.
const Disabled = "-"

// ExpandHome expands a leading '~' to the user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}

// ResolveCacheDir expands dir and creates it. It returns "" when dir is
// empty or Disabled.
func ResolveCacheDir(dir string) (string, error) {
	if dir == "" || dir == Disabled {
		return "", nil
	}
	p, err := ExpandHome(dir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(p, 0o755); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}
	return p, nil
}

// RequireDir expands dir and checks that it is an existing directory.
func RequireDir(dir string) (string, error) {
	p, err := ExpandHome(dir)
	if err != nil {
		return "", err
	}
	fi, err := os.Stat(p)
	if err != nil {
		return "", fmt.Errorf("artifact dir: %w", err)
	}
	if !fi.IsDir() {
		return "", fmt.Errorf("artifact dir: %s is not a directory", p)
	}
	return p, nil
}
