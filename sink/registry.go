package sink

import (
	"context"
	"fmt"
	"sync"

	"github.com/ExactTargetDev/flume/errors"
	"github.com/ExactTargetDev/flume/format"
)

// Builder constructs a sink from an instance name and positional string
// arguments, the shape configuration files and spec strings deliver
// them in.
type Builder func(ctx context.Context, name string, args []string, deps Dependencies) (Sink, error)

// Registry maps sink type names to builders. It lets the composition
// root register every available sink type once and build instances by
// name from configuration.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewSinkRegistry creates an empty sink registry.
func NewSinkRegistry() *Registry {
	return &Registry{builders: make(map[string]Builder)}
}

// Register adds a named builder. Duplicate names are rejected.
func (r *Registry) Register(name string, builder Builder) error {
	if name == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "SinkRegistry", "Register",
			"sink type name validation")
	}
	if builder == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "SinkRegistry", "Register",
			"builder validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.builders[name]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("sink type %q is already registered", name),
			"SinkRegistry", "Register", "duplicate type check")
	}

	r.builders[name] = builder
	return nil
}

// Build constructs a sink of the given type from positional arguments.
// The instance name identifies the sink in logs and metrics.
func (r *Registry) Build(
	ctx context.Context,
	sinkType, name string,
	args []string,
	deps Dependencies,
) (Sink, error) {
	r.mu.RLock()
	builder, exists := r.builders[sinkType]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.WrapInvalid(
			fmt.Errorf("unknown sink type %q", sinkType),
			"SinkRegistry", "Build", "builder lookup")
	}

	return builder(ctx, name, args, deps)
}

// Names returns all registered sink type names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	return names
}

// EscapedPathUsage documents the positional argument contract of the
// escapedpath sink type. It is the message reported when construction
// receives the wrong number of arguments.
const EscapedPathUsage = `usage: escapedpath("destination" [, "filename" [, "format"]])`

// NewEscapedPathBuilder returns the builder for the escapedpath sink
// type. Arguments are positional: a destination template, an optional
// filename template, and an optional format spec string. Anything
// outside one to three arguments is a fatal configuration error.
//
// The defaults config supplies everything arguments do not carry, such
// as the writer cache bound.
func NewEscapedPathBuilder(defaults Config, newWriter WriterFactory) Builder {
	return func(ctx context.Context, name string, args []string, deps Dependencies) (Sink, error) {
		if len(args) < 1 || len(args) > 3 {
			return nil, errors.WrapFatal(
				fmt.Errorf("%w: got %d arguments, %s", errors.ErrInvalidConfig, len(args), EscapedPathUsage),
				"EscapedPathBuilder", "Build", "argument count check")
		}

		cfg := defaults
		if name != "" {
			cfg.Name = name
		}
		cfg.DestinationTemplate = args[0]
		cfg.FilenameTemplate = ""
		cfg.Format = format.Spec{}
		if len(args) >= 2 {
			cfg.FilenameTemplate = args[1]
		}
		if len(args) == 3 {
			spec, err := format.ParseSpec(args[2])
			if err != nil {
				return nil, errors.WrapFatal(err, "EscapedPathBuilder", "Build",
					"parse format argument")
			}
			cfg.Format = spec
		}

		return NewDynamicSink(cfg, newWriter, deps)
	}
}
