package builder

import (
	"fmt"
	"os"
	"path/filepath"
)

// ResolvePath returns path unchanged (cleaned) if absolute, otherwise joined with the working directory
func ResolvePath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("%w %q: %w", ErrPathResolution, path, err)
	}
	return filepath.Join(cwd, path), nil
}

// EnsureWritableDir creates every missing segment of path and checks that
// files can be created inside it
func EnsureWritableDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return &WriteAccessError{Path: path, Err: err}
	}
	probe, err := os.CreateTemp(path, ".qjit-probe-*")
	if err != nil {
		return &WriteAccessError{Path: path, Err: err}
	}
	name := probe.Name()
	probe.Close()
	if err := os.Remove(name); err != nil {
		return &WriteAccessError{Path: path, Err: err}
	}
	return nil
}

// isReadable reports whether path is a regular file that can be opened for reading
func isReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return err
	}
	if st.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}
