package fileio

import (
	"os"
	"path/filepath"
)

// CreateTempFile creates a hidden temporary file next to path, creating the
// directory first if needed.
func CreateTempFile(path string) (*os.File, error) {
	dir := filepath.Dir(path)
	pattern := "." + filepath.Base(path) + ".*.tmp"

	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		err2 := os.MkdirAll(dir, os.ModePerm)
		if err2 == nil {
			f, err = os.CreateTemp(dir, pattern)
		}
		if err != nil {
			return nil, err
		}
	}

	return f, nil
}

// WriteFileAtomic replaces path with data. Readers see either the old file
// or the complete new one.
func WriteFileAtomic(path string, data []byte) error {
	f, err := CreateTempFile(path)
	if err != nil {
		return err
	}
	tmpName := f.Name()
	defer os.Remove(tmpName)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Chmod(0o644); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
