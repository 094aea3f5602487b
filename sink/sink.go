// Package sink implements the dynamic multi-destination event sink.
//
// A DynamicSink routes each event to a destination selected by
// substituting the event's tag values into a path template. Writers are
// opened lazily, cached per distinct resolved path, and closed when the
// sink closes or when the bounded writer cache evicts them.
package sink

import (
	"context"
	stderrors "errors"
	"log/slog"

	"github.com/ExactTargetDev/flume/errors"
	"github.com/ExactTargetDev/flume/event"
	"github.com/ExactTargetDev/flume/format"
	"github.com/ExactTargetDev/flume/metric"
	"github.com/ExactTargetDev/flume/pkg/cache"
	"github.com/ExactTargetDev/flume/template"
)

// Sink is the lifecycle contract shared by all sinks: open once, append
// repeatedly, close once. Sinks are not safe for concurrent use; the
// caller serializes all access to a given instance.
type Sink interface {
	Open(ctx context.Context) error
	Append(ctx context.Context, e *event.Event) error
	Close() error
}

// DefaultMaxOpenWriters bounds the dynamic writer cache when the
// configuration does not say otherwise.
const DefaultMaxOpenWriters = 1024

// Config holds construction configuration for a DynamicSink.
type Config struct {
	// Name identifies the sink in logs and metrics.
	Name string

	// DestinationTemplate is the destination path, possibly containing
	// %{tag} placeholders. Required.
	DestinationTemplate string

	// FilenameTemplate, when non-empty, is appended to the destination
	// template joined by a path separator. May also carry placeholders.
	FilenameTemplate string

	// Format selects the output serializer. The zero value means the
	// process-wide default format.
	Format format.Spec

	// MaxOpenWriters bounds the number of concurrently open writers in
	// dynamic mode. The least recently used writer is closed when the
	// bound is exceeded. Zero means DefaultMaxOpenWriters.
	MaxOpenWriters int
}

// writerEntry associates one resolved destination with its open writer
// and the serializer instance bound to that stream.
type writerEntry struct {
	path       string
	writer     Writer
	serializer format.Serializer
}

// DynamicSink writes events to destinations derived from a path
// template. Whether the template is static or dynamic is decided once,
// at construction, and drives two distinct execution shapes:
//
//   - static: one writer, opened eagerly by Open, never keyed by events
//   - dynamic: writers opened lazily per distinct resolved path and
//     held in a bounded LRU cache owned exclusively by this sink
type DynamicSink struct {
	name        string
	absTemplate string
	mode        template.Mode
	formatSpec  format.Spec
	formats     *format.Registry
	newWriter   WriterFactory
	logger      *slog.Logger
	metrics     *metric.Metrics
	next        Sink

	current *writerEntry              // static mode only
	writers cache.Cache[*writerEntry] // dynamic mode only
	closed  bool
}

// NewDynamicSink constructs a sink from configuration. Construction
// fails on missing templates and on a configured format spec that does
// not resolve; it never performs I/O.
func NewDynamicSink(cfg Config, newWriter WriterFactory, deps Dependencies) (*DynamicSink, error) {
	if cfg.DestinationTemplate == "" {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "DynamicSink", "NewDynamicSink",
			"destination template is required")
	}
	if newWriter == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "DynamicSink", "NewDynamicSink",
			"writer factory is required")
	}

	name := cfg.Name
	if name == "" {
		name = "dynamic-sink"
	}

	formats := deps.getFormats()

	// A configured format that cannot resolve is a construction error,
	// not something to fall back from at runtime.
	if !cfg.Format.IsZero() {
		if _, err := formats.Resolve(cfg.Format); err != nil {
			return nil, errors.WrapFatal(err, "DynamicSink", "NewDynamicSink",
				"resolve configured format")
		}
	}

	maxWriters := cfg.MaxOpenWriters
	if maxWriters <= 0 {
		maxWriters = DefaultMaxOpenWriters
	}

	s := &DynamicSink{
		name:        name,
		absTemplate: template.Join(cfg.DestinationTemplate, cfg.FilenameTemplate),
		mode:        template.Classify(cfg.DestinationTemplate, cfg.FilenameTemplate),
		formatSpec:  cfg.Format,
		formats:     formats,
		newWriter:   newWriter,
		logger:      deps.GetLoggerWithComponent(name),
		metrics:     deps.coreMetrics(),
	}

	if s.mode == template.Dynamic {
		var cacheOpts []cache.Option[*writerEntry]
		cacheOpts = append(cacheOpts, cache.WithEvictionCallback(s.onEvict))
		if deps.MetricsRegistry != nil {
			cacheOpts = append(cacheOpts, cache.WithMetrics[*writerEntry](deps.MetricsRegistry, name))
		}

		writers, err := cache.NewLRU(maxWriters, cacheOpts...)
		if err != nil {
			return nil, errors.Wrap(err, "DynamicSink", "NewDynamicSink", "create writer cache")
		}
		s.writers = writers
	}

	s.logger.Debug("Sink created",
		"template", s.absTemplate,
		"mode", s.mode.String(),
		"format", s.formatSpec.String(),
		"max_open_writers", maxWriters)

	return s, nil
}

// Name returns the sink's instance name.
func (s *DynamicSink) Name() string {
	return s.name
}

// Mode returns the template classification fixed at construction.
func (s *DynamicSink) Mode() template.Mode {
	return s.mode
}

// SetNext wires an optional downstream sink that receives every event
// after it has been written successfully.
func (s *DynamicSink) SetNext(next Sink) {
	s.next = next
}

// Open prepares the sink for appends. In static mode the single writer
// is opened eagerly; in dynamic mode opening is deferred until the
// first event for each destination.
func (s *DynamicSink) Open(ctx context.Context) error {
	if s.closed {
		return errors.WrapInvalid(errors.ErrSinkClosed, "DynamicSink", "Open", "check state")
	}

	if s.mode == template.Dynamic {
		return nil
	}

	if s.current != nil {
		s.logger.Debug("Open called on already-open sink", "path", s.absTemplate)
		return nil
	}

	entry, err := s.openWriter(ctx, s.absTemplate)
	if err != nil {
		return err
	}
	s.current = entry
	return nil
}

// Append serializes the event and writes it to the destination its tags
// resolve to. I/O errors propagate to the caller; there is no retry.
func (s *DynamicSink) Append(ctx context.Context, e *event.Event) error {
	if s.closed {
		return errors.WrapInvalid(errors.ErrSinkClosed, "DynamicSink", "Append", "check state")
	}

	entry, err := s.target(ctx, e)
	if err != nil {
		s.recordAppendError()
		return err
	}

	data, err := entry.serializer.Encode(e)
	if err != nil {
		s.recordAppendError()
		return errors.Wrap(err, "DynamicSink", "Append", "serialize event")
	}

	if err := entry.writer.Append(ctx, data); err != nil {
		s.recordAppendError()
		return errors.WrapTransient(err, "DynamicSink", "Append",
			"write to "+entry.path)
	}

	if s.metrics != nil {
		s.metrics.RecordAppend(s.name, len(data))
	}

	if s.next != nil {
		return s.next.Append(ctx, e)
	}
	return nil
}

// target returns the writer entry for this event, opening one when the
// resolved destination has not been seen before.
func (s *DynamicSink) target(ctx context.Context, e *event.Event) (*writerEntry, error) {
	if s.mode == template.Static {
		if s.current == nil {
			return nil, errors.WrapInvalid(errors.ErrAppendNotOpen, "DynamicSink", "Append",
				"static sink has no open writer")
		}
		return s.current, nil
	}

	path := template.Resolve(s.absTemplate, e)

	if entry, ok := s.writers.Get(path); ok {
		return entry, nil
	}

	entry, err := s.openWriter(ctx, path)
	if err != nil {
		return nil, err
	}
	if _, err := s.writers.Set(path, entry); err != nil {
		// Key validation failed after a successful open; do not leak the writer.
		_ = entry.writer.Close()
		return nil, errors.Wrap(err, "DynamicSink", "Append", "cache writer")
	}
	return entry, nil
}

// openWriter resolves a serializer for the configured format and opens
// a writer bound to the resolved path. Format resolution walks an
// ordered fallback chain (configured, process default, raw) and never
// fails writer construction by itself; the writer's own Open error is
// propagated.
func (s *DynamicSink) openWriter(ctx context.Context, path string) (*writerEntry, error) {
	specs := make([]format.Spec, 0, 3)
	if !s.formatSpec.IsZero() {
		specs = append(specs, s.formatSpec)
	}
	specs = append(specs, s.formats.Default(), format.RawSpec)

	serializer, idx, err := s.formats.ResolveFirst(specs...)
	if err != nil {
		// Unreachable while the chain ends in RawSpec; kept for safety.
		return nil, errors.Wrap(err, "DynamicSink", "openWriter", "resolve format")
	}
	if idx > 0 {
		s.logger.Warn("Configured format failed to resolve, using fallback",
			"configured", specs[0].String(),
			"fallback", specs[idx].String(),
			"path", path)
		if s.metrics != nil {
			s.metrics.RecordFormatFallback(s.name)
		}
	}

	s.logger.Info("Opening writer", "path", path)

	w, err := s.newWriter(path)
	if err != nil {
		s.recordOpenError()
		return nil, errors.Wrap(err, "DynamicSink", "openWriter", "construct writer for "+path)
	}

	if err := w.Open(ctx); err != nil {
		s.recordOpenError()
		return nil, errors.WrapTransient(err, "DynamicSink", "openWriter", "open "+path)
	}

	if s.metrics != nil {
		s.metrics.RecordWriterOpened(s.name)
	}

	return &writerEntry{path: path, writer: w, serializer: serializer}, nil
}

// Close terminates every writer the sink holds. In dynamic mode every
// destination is attempted regardless of individual failures and the
// failures are aggregated; no writer is left open because a sibling
// failed to close.
func (s *DynamicSink) Close() error {
	if s.mode == template.Static {
		return s.closeStatic()
	}
	return s.closeDynamic()
}

func (s *DynamicSink) closeStatic() error {
	s.closed = true

	if s.current == nil {
		s.logger.Warn("Writer was already closed", "path", s.absTemplate)
		return nil
	}

	s.logger.Info("Closing writer", "path", s.absTemplate)

	entry := s.current
	s.current = nil

	if err := entry.writer.Close(); err != nil {
		return errors.WrapTransient(err, "DynamicSink", "Close", "close "+entry.path)
	}
	if s.metrics != nil {
		s.metrics.RecordWriterClosed(s.name)
	}
	return nil
}

func (s *DynamicSink) closeDynamic() error {
	s.closed = true

	var errs []error
	for _, path := range s.writers.Keys() {
		entry, ok := s.writers.Get(path)
		if !ok {
			continue
		}

		s.logger.Info("Closing writer", "path", path)

		if err := entry.writer.Close(); err != nil {
			s.logger.Error("Failed to close writer", "path", path, "error", err)
			errs = append(errs, errors.WrapTransient(err, "DynamicSink", "Close", "close "+path))
		} else if s.metrics != nil {
			s.metrics.RecordWriterClosed(s.name)
		}

		// Delete skips the eviction callback, so the writer is not
		// closed a second time.
		_, _ = s.writers.Delete(path)
	}

	return stderrors.Join(errs...)
}

// onEvict closes a writer whose cache slot was reclaimed. A later event
// for the same destination reopens it through the normal miss path.
func (s *DynamicSink) onEvict(path string, entry *writerEntry) {
	s.logger.Info("Evicting writer", "path", path)

	if err := entry.writer.Close(); err != nil {
		s.logger.Error("Failed to close evicted writer", "path", path, "error", err)
	}
	if s.metrics != nil {
		s.metrics.RecordWriterEvicted(s.name)
	}
}

func (s *DynamicSink) recordAppendError() {
	if s.metrics != nil {
		s.metrics.RecordAppendError(s.name)
	}
}

func (s *DynamicSink) recordOpenError() {
	if s.metrics != nil {
		s.metrics.RecordWriterOpenError(s.name)
	}
}
