package format

import (
	"fmt"
	"sync"

	"github.com/ExactTargetDev/flume/errors"
)

// Factory constructs a fresh Serializer from spec arguments.
type Factory func(args []string) (Serializer, error)

// Registry maps format names to factories and carries the process-wide
// default spec. Registration is thread-safe; lookups take a read lock.
type Registry struct {
	mu          sync.RWMutex
	factories   map[string]Factory
	defaultSpec Spec
}

// NewRegistry creates a registry with the built-in formats (raw, jsonl,
// json, csv) and raw as the default spec.
func NewRegistry() *Registry {
	r := &Registry{
		factories:   make(map[string]Factory),
		defaultSpec: RawSpec,
	}

	// Built-ins cannot collide in a fresh map.
	_ = r.Register("raw", newRaw)
	_ = r.Register("jsonl", newJSONL)
	_ = r.Register("json", newJSON)
	_ = r.Register("csv", newCSV)

	return r
}

// Register adds a named factory. Duplicate names are rejected.
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "Register",
			"format name validation")
	}
	if factory == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "Register",
			"factory validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("format %q is already registered", name),
			"Registry", "Register", "duplicate format check")
	}

	r.factories[name] = factory
	return nil
}

// Resolve constructs a fresh serializer for the spec. Unknown names and
// rejected arguments both classify as invalid.
func (r *Registry) Resolve(spec Spec) (Serializer, error) {
	if spec.IsZero() {
		return nil, errors.WrapInvalid(errors.ErrFormatArgs, "Registry", "Resolve",
			"empty spec")
	}

	r.mu.RLock()
	factory, exists := r.factories[spec.Name]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrUnknownFormat, spec.Name),
			"Registry", "Resolve", "format lookup")
	}

	serializer, err := factory(spec.Args)
	if err != nil {
		return nil, errors.Wrap(err, "Registry", "Resolve",
			fmt.Sprintf("construct %q", spec.String()))
	}

	return serializer, nil
}

// ResolveFirst tries each spec in order and returns the first serializer
// that resolves, along with the index of the winning spec. It fails only
// when every spec in the chain fails.
//
// Fallback chains are built by callers as an explicit ordered list, for
// example [configured, default, RawSpec]: a chain ending in RawSpec
// cannot fail.
func (r *Registry) ResolveFirst(specs ...Spec) (Serializer, int, error) {
	if len(specs) == 0 {
		return nil, -1, errors.WrapInvalid(errors.ErrFormatArgs, "Registry", "ResolveFirst",
			"no specs supplied")
	}

	var firstErr error
	for i, spec := range specs {
		s, err := r.Resolve(spec)
		if err == nil {
			return s, i, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}

	return nil, -1, errors.Wrap(firstErr, "Registry", "ResolveFirst",
		fmt.Sprintf("all %d specs", len(specs)))
}

// SetDefault changes the process-wide default spec after verifying it
// resolves. An unresolvable default is rejected rather than deferred to
// runtime.
func (r *Registry) SetDefault(spec Spec) error {
	if _, err := r.Resolve(spec); err != nil {
		return errors.Wrap(err, "Registry", "SetDefault", "validate default spec")
	}

	r.mu.Lock()
	r.defaultSpec = spec
	r.mu.Unlock()
	return nil
}

// Default returns the process-wide default spec.
func (r *Registry) Default() Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultSpec
}

// Names returns all registered format names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}
