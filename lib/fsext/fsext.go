// Package fsext contains the filesystem helpers the minification pipeline is
// built on. Everything goes through an afero.Fs so the pipeline can run
// against an in-memory filesystem in tests.
package fsext

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// RimRaf recursively deletes the given directory, ignoring the case where it
// doesn't exist.
func RimRaf(fs afero.Fs, path string) error {
	err := fs.RemoveAll(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// MkDir creates the given directory, together with any missing parents.
func MkDir(fs afero.Fs, path string) error {
	return fs.MkdirAll(path, 0o755)
}

// ReadFile reads the whole file from the given afero filesystem.
func ReadFile(fs afero.Fs, path string) ([]byte, error) {
	return afero.ReadFile(fs, path)
}

// WriteFile writes data to the given path, creating the file if necessary.
func WriteFile(fs afero.Fs, path string, data []byte) error {
	return afero.WriteFile(fs, path, data, 0o644)
}

// ReadDir returns the full paths of the regular files directly under dir.
// Subdirectories are skipped.
func ReadDir(fs afero.Fs, dir string) ([]string, error) {
	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		paths = append(paths, filepath.Join(dir, info.Name()))
	}
	return paths, nil
}
