package encode

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Output is a destination file that only appears at its final path once
// committed. Until then data goes to a hidden temp file in the same
// directory, so a failed or cancelled render never leaves a partial file.
type Output struct {
	path string
	file *os.File
	done bool
}

// Create opens a temp file next to path.
func Create(path string) (*Output, error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temp output: %w", err)
	}
	return &Output{path: path, file: f}, nil
}

// Path returns the final destination path.
func (o *Output) Path() string { return o.path }

// TempPath returns the path of the temp file being written.
func (o *Output) TempPath() string { return o.file.Name() }

// Write implements io.Writer.
func (o *Output) Write(p []byte) (int, error) {
	if o.done {
		return 0, ErrClosed
	}
	return o.file.Write(p)
}

// Seek implements io.Seeker.
func (o *Output) Seek(offset int64, whence int) (int64, error) {
	if o.done {
		return 0, ErrClosed
	}
	return o.file.Seek(offset, whence)
}

// Commit syncs the temp file and renames it over the destination. On
// failure the temp file is removed.
func (o *Output) Commit() error {
	if o.done {
		return ErrClosed
	}
	o.done = true

	err := o.file.Chmod(outputPerm)
	if err == nil {
		err = o.file.Sync()
	}
	if cerr := o.file.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(o.file.Name(), o.path)
	}
	if err != nil {
		_ = os.Remove(o.file.Name())
		return fmt.Errorf("commit %s: %w", o.path, err)
	}
	return nil
}

// Abort closes and removes the temp file. It is a no-op after Commit or a
// previous Abort.
func (o *Output) Abort() error {
	if o.done {
		return nil
	}
	o.done = true

	cerr := o.file.Close()
	rerr := os.Remove(o.file.Name())
	if errors.Is(rerr, os.ErrNotExist) {
		rerr = nil
	}
	return errors.Join(cerr, rerr)
}
