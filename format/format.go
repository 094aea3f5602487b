// Package format provides pluggable output-format serializers for sink
// writers. A format is identified by a Spec (name plus arguments) and
// resolved to a fresh Serializer per writer, because serializers may
// carry per-stream state (the csv header, for example) and must never
// be shared across destinations.
package format

import (
	"fmt"
	"strings"

	"github.com/ExactTargetDev/flume/errors"
	"github.com/ExactTargetDev/flume/event"
)

// Serializer encodes a single event into the bytes handed to a writer.
type Serializer interface {
	// Encode returns the serialized representation of the event,
	// including any record separator the format requires.
	Encode(e *event.Event) ([]byte, error)
}

// Spec identifies a serializer construction recipe: a format name and
// optional arguments. Legacy bare-name configuration strings are
// normalized into a Spec exactly once, at the construction boundary,
// via ParseSpec.
type Spec struct {
	Name string   `json:"name"`
	Args []string `json:"args,omitempty"`
}

// RawSpec is the hardcoded last-resort format: no transformation beyond
// newline-terminated raw bodies. Resolving it never fails.
var RawSpec = Spec{Name: "raw"}

// ParseSpec normalizes a textual format argument into a Spec. Accepted
// forms are a bare name ("jsonl") and a call form ("csv(header)") with
// comma-separated arguments.
func ParseSpec(s string) (Spec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Spec{}, errors.WrapInvalid(errors.ErrFormatArgs, "format", "ParseSpec",
			"empty format spec")
	}

	open := strings.IndexByte(s, '(')
	if open < 0 {
		return Spec{Name: s}, nil
	}

	if !strings.HasSuffix(s, ")") {
		return Spec{}, errors.WrapInvalid(errors.ErrFormatArgs, "format", "ParseSpec",
			fmt.Sprintf("malformed format spec %q", s))
	}

	name := strings.TrimSpace(s[:open])
	if name == "" {
		return Spec{}, errors.WrapInvalid(errors.ErrFormatArgs, "format", "ParseSpec",
			fmt.Sprintf("format spec %q has no name", s))
	}

	inner := s[open+1 : len(s)-1]
	var args []string
	if strings.TrimSpace(inner) != "" {
		for _, a := range strings.Split(inner, ",") {
			args = append(args, strings.TrimSpace(a))
		}
	}

	return Spec{Name: name, Args: args}, nil
}

// String renders the spec back into its textual form.
func (s Spec) String() string {
	if len(s.Args) == 0 {
		return s.Name
	}
	return fmt.Sprintf("%s(%s)", s.Name, strings.Join(s.Args, ","))
}

// IsZero reports whether the spec is unset.
func (s Spec) IsZero() bool {
	return s.Name == ""
}
