// Package file implements a local filesystem writer. Each writer owns
// one append-mode file; parent directories are created on open.
package file

import (
	"context"
	"os"
	"path/filepath"

	"github.com/ExactTargetDev/flume/errors"
)

// Writer appends records to a single local file.
type Writer struct {
	path string
	file *os.File
}

// New constructs an unopened writer for the given path.
func New(path string) (*Writer, error) {
	if path == "" {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "FileWriter", "New",
			"path validation")
	}
	return &Writer{path: path}, nil
}

// Path returns the destination path.
func (w *Writer) Path() string {
	return w.path
}

// Open creates the parent directory if needed and opens the file in
// append mode, so restarts continue an existing file rather than
// truncating it.
func (w *Writer) Open(_ context.Context) error {
	if w.file != nil {
		return errors.WrapInvalid(errors.ErrWriterOpen, "FileWriter", "Open", "check state")
	}

	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.WrapTransient(err, "FileWriter", "Open", "create directory "+dir)
		}
	}

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.WrapTransient(err, "FileWriter", "Open", "open "+w.path)
	}

	w.file = f
	return nil
}

// Append writes one serialized record.
func (w *Writer) Append(_ context.Context, data []byte) error {
	if w.file == nil {
		return errors.WrapInvalid(errors.ErrWriterClosed, "FileWriter", "Append", "check state")
	}

	if _, err := w.file.Write(data); err != nil {
		return errors.WrapTransient(err, "FileWriter", "Append", "write "+w.path)
	}
	return nil
}

// Close syncs and closes the file. Closing an already-closed writer is
// an invalid use error.
func (w *Writer) Close() error {
	if w.file == nil {
		return errors.WrapInvalid(errors.ErrWriterClosed, "FileWriter", "Close", "check state")
	}

	f := w.file
	w.file = nil

	if err := f.Sync(); err != nil {
		_ = f.Close()
		return errors.WrapTransient(err, "FileWriter", "Close", "sync "+w.path)
	}
	if err := f.Close(); err != nil {
		return errors.WrapTransient(err, "FileWriter", "Close", "close "+w.path)
	}
	return nil
}
