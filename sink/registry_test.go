package sink

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ExactTargetDev/flume/errors"
	"github.com/ExactTargetDev/flume/event"
)

func buildEscaped(t *testing.T, args []string) (Sink, *fakeFactory, error) {
	t.Helper()
	factory := newFakeFactory()
	r := NewSinkRegistry()
	require.NoError(t, r.Register("escapedpath", NewEscapedPathBuilder(Config{Name: "escapedpath"}, factory.New)))
	s, err := r.Build(context.Background(), "escapedpath", "events", args, Dependencies{})
	return s, factory, err
}

func TestBuildUnknownType(t *testing.T) {
	r := NewSinkRegistry()
	_, err := r.Build(context.Background(), "avro", "a", nil, Dependencies{})
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestRegisterDuplicateType(t *testing.T) {
	factory := newFakeFactory()
	r := NewSinkRegistry()
	b := NewEscapedPathBuilder(Config{}, factory.New)
	require.NoError(t, r.Register("escapedpath", b))
	assert.Error(t, r.Register("escapedpath", b))
}

func TestEscapedPathArgumentCount(t *testing.T) {
	for _, args := range [][]string{nil, {}, {"a", "b", "c", "d"}} {
		_, _, err := buildEscaped(t, args)
		require.Error(t, err, "args %v", args)
		assert.True(t, errors.IsFatal(err))
		assert.Contains(t, err.Error(), "usage:")
	}
}

func TestEscapedPathOneArg(t *testing.T) {
	s, factory, err := buildEscaped(t, []string{"/logs/%{host}"})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Open(ctx))
	require.NoError(t, s.Append(ctx, event.New([]byte("x"), map[string]string{"host": "a"})))
	assert.Equal(t, []string{"/logs/a"}, factory.constructed())
}

func TestEscapedPathTwoArgs(t *testing.T) {
	s, factory, err := buildEscaped(t, []string{"/logs", "%{host}.log"})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Open(ctx))
	require.NoError(t, s.Append(ctx, event.New([]byte("x"), map[string]string{"host": "a"})))
	assert.Equal(t, []string{"/logs/a.log"}, factory.constructed())
}

func TestEscapedPathFormatArg(t *testing.T) {
	s, factory, err := buildEscaped(t, []string{"/logs", "app.log", "jsonl"})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Open(ctx))
	require.NoError(t, s.Append(ctx, event.New([]byte("x"), nil)))

	appended := factory.writer("/logs/app.log").appends
	require.Len(t, appended, 1)
	assert.Contains(t, string(appended[0]), `"body"`)
}

func TestEscapedPathBadFormatIsFatal(t *testing.T) {
	_, _, err := buildEscaped(t, []string{"/logs", "app.log", "csv(header"})
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))

	_, _, err = buildEscaped(t, []string{"/logs", "app.log", "avrodata"})
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}
