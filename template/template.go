// Package template resolves destination-path templates against event tags.
//
// Templates use %{name} placeholders that are substituted with the
// event's tag values, and %% as a literal percent escape. Whether a
// template contains placeholders is decided once, at sink construction,
// and never re-checked per event.
package template

import (
	"strings"

	"github.com/ExactTargetDev/flume/event"
)

// Mode classifies a template at construction time.
type Mode int

const (
	// Static means no placeholder appears anywhere in the template;
	// the sink writes to a single fixed destination.
	Static Mode = iota
	// Dynamic means at least one placeholder is present; destinations
	// are resolved per event.
	Dynamic
)

// String returns the string representation of Mode
func (m Mode) String() string {
	switch m {
	case Static:
		return "static"
	case Dynamic:
		return "dynamic"
	default:
		return "unknown"
	}
}

// ContainsTag reports whether s contains at least one %{name} placeholder.
func ContainsTag(s string) bool {
	for i := 0; i+1 < len(s); i++ {
		if s[i] != '%' {
			continue
		}
		if s[i+1] == '%' {
			i++ // skip the literal escape
			continue
		}
		if s[i+1] == '{' && strings.IndexByte(s[i+2:], '}') >= 0 {
			return true
		}
	}
	return false
}

// Classify returns Dynamic when either the destination template or the
// filename template carries a placeholder, Static otherwise.
func Classify(destination, filename string) Mode {
	if ContainsTag(destination) || ContainsTag(filename) {
		return Dynamic
	}
	return Static
}

// Join builds the absolute path template from a destination template and
// an optional filename template, separated by a single "/" when the
// filename component is non-empty.
func Join(destination, filename string) string {
	if filename == "" {
		return destination
	}
	if strings.HasSuffix(destination, "/") {
		return destination + filename
	}
	return destination + "/" + filename
}

// Resolve substitutes each %{name} placeholder in tmpl with the event's
// tag value. Placeholders whose tag is absent resolve to the empty
// string; %% resolves to a literal percent. Malformed placeholders
// (no closing brace) are passed through unchanged.
func Resolve(tmpl string, e *event.Event) string {
	if !strings.ContainsRune(tmpl, '%') {
		return tmpl
	}

	var b strings.Builder
	b.Grow(len(tmpl))

	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		if c != '%' || i+1 >= len(tmpl) {
			b.WriteByte(c)
			continue
		}

		switch tmpl[i+1] {
		case '%':
			b.WriteByte('%')
			i++
		case '{':
			end := strings.IndexByte(tmpl[i+2:], '}')
			if end < 0 {
				b.WriteByte(c)
				continue
			}
			name := tmpl[i+2 : i+2+end]
			if v, ok := e.Tag(name); ok {
				b.WriteString(v)
			}
			i += 2 + end
		default:
			b.WriteByte(c)
		}
	}

	return b.String()
}
