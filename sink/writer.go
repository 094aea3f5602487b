package sink

import (
	"context"
)

// Writer is a handle bound to exactly one concrete destination. A
// writer is constructed unopened, opened exactly once before the first
// append, and closed exactly once. Every call may fail with an I/O
// error from the underlying storage.
//
// Backends (local files, object stores) satisfy this interface
// implicitly; the sink never knows which one it is driving.
type Writer interface {
	// Open establishes the destination. May block on storage I/O for
	// the duration of connection setup.
	Open(ctx context.Context) error

	// Append writes one serialized record.
	Append(ctx context.Context, data []byte) error

	// Close releases the destination. Append after Close is invalid.
	Close() error
}

// WriterFactory constructs an unopened Writer bound to a resolved
// destination path. The factory is how deployment wiring chooses a
// backend per destination (typically by URL scheme).
type WriterFactory func(path string) (Writer, error)
