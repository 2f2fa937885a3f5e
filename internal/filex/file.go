// Package filex holds filesystem helpers for the CLI client.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureSubDir creates dirName under the current working directory if it
// does not exist yet and returns its absolute path.
func EnsureSubDir(dirName string) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getwd: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// SaveToDir writes data into dir under name, refusing path traversal in name.
func SaveToDir(dir, name string, data []byte) (string, error) {
	if name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid file name: %q", name)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
