package parser

import (
	"fmt"
	"io"
	"os"
)

// spool copies r into a new temporary file for libraries that need random
// access. The caller must invoke cleanup on every path; it closes and
// removes the file.
func spool(r io.Reader, dir, pattern string) (*os.File, int64, func(), error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, 0, func() {}, fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	cleanup := func() {
		f.Close()
		os.Remove(path)
	}
	size, err := io.Copy(f, r)
	if err != nil {
		return nil, 0, cleanup, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, 0, cleanup, fmt.Errorf("seek temp file: %w", err)
	}
	return f, size, cleanup, nil
}
