package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	e := New([]byte("hello"), map[string]string{"host": "h1", "dc": "us-east"})

	assert.NotEmpty(t, e.ID())
	assert.Equal(t, []byte("hello"), e.Body())

	host, ok := e.Tag("host")
	require.True(t, ok)
	assert.Equal(t, "h1", host)

	// Timestamp tag is filled in automatically
	ts, ok := e.Tag(TagTimestamp)
	require.True(t, ok)
	assert.NotEmpty(t, ts)
}

func TestNewFillsHostTag(t *testing.T) {
	e := New([]byte("x"), nil)

	host, ok := e.Tag(TagHost)
	require.True(t, ok)
	assert.NotEmpty(t, host)

	// A caller-supplied host tag is never overwritten.
	e = New([]byte("x"), map[string]string{TagHost: "h9"})
	host, _ = e.Tag(TagHost)
	assert.Equal(t, "h9", host)
}

func TestNewCopiesTags(t *testing.T) {
	tags := map[string]string{"host": "h1"}
	e := New([]byte("x"), tags)

	tags["host"] = "mutated"

	host, _ := e.Tag("host")
	assert.Equal(t, "h1", host)
}

func TestTagsReturnsCopy(t *testing.T) {
	e := New(nil, map[string]string{"host": "h1"})

	e.Tags()["host"] = "mutated"

	host, _ := e.Tag("host")
	assert.Equal(t, "h1", host)
}

func TestJSONRoundTrip(t *testing.T) {
	e := New([]byte("payload"), map[string]string{"host": "h1"})

	data, err := json.Marshal(e)
	require.NoError(t, err)

	var decoded Event
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, e.ID(), decoded.ID())
	assert.Equal(t, e.Body(), decoded.Body())
	host, _ := decoded.Tag("host")
	assert.Equal(t, "h1", host)
}

func TestUnmarshalFillsDefaults(t *testing.T) {
	var e Event
	require.NoError(t, json.Unmarshal([]byte(`{"body":"raw line"}`), &e))

	assert.NotEmpty(t, e.ID())
	assert.False(t, e.Timestamp().IsZero())
	assert.Equal(t, []byte("raw line"), e.Body())

	_, ok := e.Tag("absent")
	assert.False(t, ok)
}
