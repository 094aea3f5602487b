package natsclient

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientDefaults(t *testing.T) {
	c, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	assert.Equal(t, "nats://localhost:4222", c.URL())
	assert.Equal(t, StatusDisconnected, c.Status())
	assert.False(t, c.IsHealthy())
	assert.Equal(t, -1, c.maxReconnects)
	assert.Equal(t, 5*time.Second, c.timeout)
}

func TestClientOptions(t *testing.T) {
	c, err := NewClient("nats://localhost:4222",
		WithName("flume"),
		WithTimeout(time.Second),
		WithMaxReconnects(3),
		WithReconnectWait(500*time.Millisecond),
		WithCredentials("user", "pass"),
	)
	require.NoError(t, err)

	assert.Equal(t, "flume", c.clientName)
	assert.Equal(t, time.Second, c.timeout)
	assert.Equal(t, 3, c.maxReconnects)
	assert.Equal(t, 500*time.Millisecond, c.reconnectWait)
	assert.Equal(t, "user", c.username)
}

func TestOptionErrorPropagates(t *testing.T) {
	failing := func(*Client) error { return fmt.Errorf("bad option") }
	_, err := NewClient("nats://localhost:4222", failing)
	assert.Error(t, err)
}

func TestJetStreamBeforeConnect(t *testing.T) {
	c, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	_, err = c.JetStream()
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestCloseIsIdempotent(t *testing.T) {
	c, err := NewClient("nats://localhost:4222", WithToken("secret"))
	require.NoError(t, err)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	assert.Equal(t, StatusDisconnected, c.Status())
	assert.Empty(t, c.token)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "disconnected", StatusDisconnected.String())
	assert.Equal(t, "connecting", StatusConnecting.String())
	assert.Equal(t, "connected", StatusConnected.String())
	assert.Equal(t, "reconnecting", StatusReconnecting.String())
}
