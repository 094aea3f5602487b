package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUBasicOperations(t *testing.T) {
	c, err := NewLRU[string](3)
	require.NoError(t, err)

	created, err := c.Set("a", "1")
	require.NoError(t, err)
	assert.True(t, created)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", v)

	// Update existing key
	created, err = c.Set("a", "2")
	require.NoError(t, err)
	assert.False(t, created)

	v, _ = c.Get("a")
	assert.Equal(t, "2", v)

	deleted, err := c.Delete("a")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestLRUEviction(t *testing.T) {
	var evictedKeys []string
	c, err := NewLRU[int](2, WithEvictionCallback[int](func(key string, _ int) {
		evictedKeys = append(evictedKeys, key)
	}))
	require.NoError(t, err)

	_, _ = c.Set("a", 1)
	_, _ = c.Set("b", 2)
	_, _ = c.Set("c", 3) // evicts "a"

	assert.Equal(t, []string{"a"}, evictedKeys)
	assert.Equal(t, 2, c.Size())

	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("b")
	assert.True(t, ok)
}

func TestLRURecentUseProtectsEntry(t *testing.T) {
	c, err := NewLRU[int](2)
	require.NoError(t, err)

	_, _ = c.Set("a", 1)
	_, _ = c.Set("b", 2)

	// Touch "a" so "b" becomes the eviction candidate
	_, _ = c.Get("a")
	_, _ = c.Set("c", 3)

	_, ok := c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestLRUDeleteDoesNotInvokeEvictCallback(t *testing.T) {
	evictions := 0
	c, err := NewLRU[int](4, WithEvictionCallback[int](func(string, int) {
		evictions++
	}))
	require.NoError(t, err)

	_, _ = c.Set("a", 1)
	_, err = c.Delete("a")
	require.NoError(t, err)

	assert.Zero(t, evictions)
}

func TestLRUClearInvokesCallbackForAll(t *testing.T) {
	var evictedKeys []string
	c, err := NewLRU[int](4, WithEvictionCallback[int](func(key string, _ int) {
		evictedKeys = append(evictedKeys, key)
	}))
	require.NoError(t, err)

	_, _ = c.Set("a", 1)
	_, _ = c.Set("b", 2)

	require.NoError(t, c.Clear())

	assert.Len(t, evictedKeys, 2)
	assert.Zero(t, c.Size())
}

func TestLRUKeysInRecencyOrder(t *testing.T) {
	c, err := NewLRU[int](4)
	require.NoError(t, err)

	_, _ = c.Set("a", 1)
	_, _ = c.Set("b", 2)
	_, _ = c.Get("a")

	assert.Equal(t, []string{"a", "b"}, c.Keys())
}

func TestLRURejectsEmptyKey(t *testing.T) {
	c, err := NewLRU[int](4)
	require.NoError(t, err)

	_, err = c.Set("", 1)
	assert.Error(t, err)
}

func TestLRURejectsNonPositiveSize(t *testing.T) {
	_, err := NewLRU[int](0)
	assert.Error(t, err)
}

func TestSimpleCacheUnbounded(t *testing.T) {
	c, err := NewSimple[int]()
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		_, err := c.Set(string(rune('a'+i%26))+string(rune('0'+i/26)), i)
		require.NoError(t, err)
	}

	assert.Equal(t, 100, c.Size())
}

func TestStatistics(t *testing.T) {
	c, err := NewLRU[int](2)
	require.NoError(t, err)

	_, _ = c.Set("a", 1)
	_, _ = c.Get("a")
	_, _ = c.Get("missing")
	_, _ = c.Set("b", 2)
	_, _ = c.Set("c", 3) // eviction

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits())
	assert.Equal(t, int64(1), stats.Misses())
	assert.Equal(t, int64(3), stats.Sets())
	assert.Equal(t, int64(1), stats.Evictions())
	assert.InDelta(t, 0.5, stats.HitRatio(), 0.001)
}
