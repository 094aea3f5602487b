// Package event defines the record type that flows through flume sinks.
package event

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Standard tag names attached to every event at creation time.
const (
	TagHost      = "host"
	TagTimestamp = "timestamp"
)

// Event is an immutable record carrying a payload body and a set of
// tag key/value pairs. Tags drive destination-path resolution; the body
// is what gets serialized and written. Sinks never mutate events.
type Event struct {
	id        string
	timestamp time.Time
	tags      map[string]string
	body      []byte
}

// New creates an event with the given body and tags. The host and
// timestamp standard tags are filled in when the caller did not supply
// them. The tag map is copied so the caller may reuse it.
func New(body []byte, tags map[string]string) *Event {
	now := time.Now().UTC()

	copied := make(map[string]string, len(tags)+2)
	for k, v := range tags {
		copied[k] = v
	}
	if _, ok := copied[TagTimestamp]; !ok {
		copied[TagTimestamp] = now.Format(time.RFC3339)
	}
	if _, ok := copied[TagHost]; !ok {
		copied[TagHost] = localHostname()
	}

	return &Event{
		id:        uuid.NewString(),
		timestamp: now,
		tags:      copied,
		body:      body,
	}
}

var hostnameOnce = sync.OnceValue(func() string {
	name, err := os.Hostname()
	if err != nil {
		return "localhost"
	}
	return name
})

func localHostname() string {
	return hostnameOnce()
}

// ID returns the unique identifier assigned at creation.
func (e *Event) ID() string {
	return e.id
}

// Timestamp returns the event creation time.
func (e *Event) Timestamp() time.Time {
	return e.timestamp
}

// Body returns the payload bytes. Callers must not modify the result.
func (e *Event) Body() []byte {
	return e.body
}

// Tag returns the value for a tag name and whether it was present.
func (e *Event) Tag(name string) (string, bool) {
	v, ok := e.tags[name]
	return v, ok
}

// Tags returns a copy of the tag map.
func (e *Event) Tags() map[string]string {
	copied := make(map[string]string, len(e.tags))
	for k, v := range e.tags {
		copied[k] = v
	}
	return copied
}

// wireEvent is the JSON wire representation of an event.
type wireEvent struct {
	ID        string            `json:"id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Tags      map[string]string `json:"tags,omitempty"`
	Body      string            `json:"body"`
}

// MarshalJSON implements json.Marshaler.
func (e *Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireEvent{
		ID:        e.id,
		Timestamp: e.timestamp,
		Tags:      e.tags,
		Body:      string(e.body),
	})
}

// UnmarshalJSON implements json.Unmarshaler. A missing ID gets a fresh
// one so events parsed from external feeds stay individually traceable.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	e.id = w.ID
	if e.id == "" {
		e.id = uuid.NewString()
	}
	e.timestamp = w.Timestamp
	if e.timestamp.IsZero() {
		e.timestamp = time.Now().UTC()
	}
	e.tags = w.Tags
	if e.tags == nil {
		e.tags = map[string]string{}
	}
	e.body = []byte(w.Body)
	return nil
}
