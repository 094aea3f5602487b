// Package objectstore implements a writer backed by a NATS JetStream
// object store. Appends accumulate in memory and the object is written
// as a whole on close, since object stores replace rather than append.
package objectstore

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/ExactTargetDev/flume/errors"
	"github.com/ExactTargetDev/flume/natsclient"
	"github.com/ExactTargetDev/flume/pkg/retry"
)

// Store is the subset of jetstream.ObjectStore the writer needs.
type Store interface {
	PutBytes(ctx context.Context, name string, data []byte) (*jetstream.ObjectInfo, error)
	GetBytes(ctx context.Context, name string, opts ...jetstream.GetObjectOpt) ([]byte, error)
}

// StoreProvider yields the bucket a writer flushes into. Providers may
// dial lazily; the writer calls them once, at open.
type StoreProvider func(ctx context.Context) (Store, error)

// ClientProvider adapts a natsclient.Client into a StoreProvider for
// the named bucket. Bucket acquisition is retried with backoff since a
// fresh connection may race JetStream readiness.
func ClientProvider(client *natsclient.Client, bucket string, retryCfg retry.Config) StoreProvider {
	return func(ctx context.Context) (Store, error) {
		return retry.DoWithResult(ctx, retryCfg, func() (Store, error) {
			store, err := client.ObjectStore(ctx, bucket)
			if err != nil {
				return nil, err
			}
			return store, nil
		})
	}
}

// DefaultFlushTimeout bounds the final put performed by Close.
const DefaultFlushTimeout = 30 * time.Second

// Writer buffers appended records for one object and writes the object
// on close. Opening an existing object seeds the buffer with its
// current content, so a close-reopen cycle keeps append semantics.
type Writer struct {
	name         string
	provider     StoreProvider
	flushTimeout time.Duration

	store  Store
	buf    []byte
	opened bool
}

// Option configures a Writer.
type Option func(*Writer)

// WithFlushTimeout overrides the close-time flush deadline.
func WithFlushTimeout(d time.Duration) Option {
	return func(w *Writer) {
		if d > 0 {
			w.flushTimeout = d
		}
	}
}

// New constructs an unopened writer for the named object.
func New(name string, provider StoreProvider, opts ...Option) (*Writer, error) {
	if name == "" {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "ObjectWriter", "New",
			"object name validation")
	}
	if provider == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "ObjectWriter", "New",
			"store provider validation")
	}

	w := &Writer{
		name:         name,
		provider:     provider,
		flushTimeout: DefaultFlushTimeout,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Name returns the object name.
func (w *Writer) Name() string {
	return w.name
}

// Open acquires the bucket and seeds the buffer from any existing
// object of the same name.
func (w *Writer) Open(ctx context.Context) error {
	if w.opened {
		return errors.WrapInvalid(errors.ErrWriterOpen, "ObjectWriter", "Open", "check state")
	}

	store, err := w.provider(ctx)
	if err != nil {
		return errors.WrapTransient(err, "ObjectWriter", "Open", "acquire bucket")
	}

	existing, err := store.GetBytes(ctx, w.name)
	switch {
	case err == nil:
		w.buf = existing
	case stderrors.Is(err, jetstream.ErrObjectNotFound):
		w.buf = nil
	default:
		return errors.WrapTransient(err, "ObjectWriter", "Open", "read existing "+w.name)
	}

	w.store = store
	w.opened = true
	return nil
}

// Append buffers one serialized record.
func (w *Writer) Append(_ context.Context, data []byte) error {
	if !w.opened {
		return errors.WrapInvalid(errors.ErrWriterClosed, "ObjectWriter", "Append", "check state")
	}

	w.buf = append(w.buf, data...)
	return nil
}

// Close writes the buffered object. The buffer is retained when the put
// fails, so a caller that treats close failures as transient can retry.
func (w *Writer) Close() error {
	if !w.opened {
		return errors.WrapInvalid(errors.ErrWriterClosed, "ObjectWriter", "Close", "check state")
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.flushTimeout)
	defer cancel()

	if _, err := w.store.PutBytes(ctx, w.name, w.buf); err != nil {
		return errors.WrapTransient(err, "ObjectWriter", "Close", "put "+w.name)
	}

	w.opened = false
	w.store = nil
	w.buf = nil
	return nil
}
