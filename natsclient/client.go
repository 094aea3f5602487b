// Package natsclient provides a client for managing NATS connections
// and JetStream object store access.
package natsclient

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/ExactTargetDev/flume/errors"
)

// ConnectionStatus represents the state of the NATS connection
type ConnectionStatus int

// Possible connection statuses
const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
)

// String returns the string representation of ConnectionStatus
func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Error messages
var (
	ErrNotConnected      = stderrors.New("not connected to NATS")
	ErrConnectionTimeout = stderrors.New("connection timeout")
)

// Client manages a NATS connection and its JetStream context.
type Client struct {
	url    string
	status atomic.Value // stores ConnectionStatus
	logger Logger

	conn *nats.Conn
	js   jetstream.JetStream

	// Connection options
	maxReconnects int
	reconnectWait time.Duration
	timeout       time.Duration
	drainTimeout  time.Duration

	// Authentication - cleared on close
	username string
	password string
	token    string

	clientName string

	mu      sync.RWMutex
	closeMu sync.Mutex
	closed  atomic.Bool
}

// NewClient creates a new NATS client with optional configuration
func NewClient(url string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		url:    url,
		logger: &defaultLogger{},
		// Sensible defaults
		maxReconnects: -1,
		reconnectWait: 2 * time.Second,
		timeout:       5 * time.Second,
		drainTimeout:  30 * time.Second,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapInvalid(err, "Client", "NewClient", "apply option")
		}
	}

	c.status.Store(StatusDisconnected)

	c.logger.Debugf("Created NATS client for %s", url)

	return c, nil
}

// URL returns the NATS server URL
func (m *Client) URL() string {
	return m.url
}

// Status returns the current connection status
func (m *Client) Status() ConnectionStatus {
	val := m.status.Load()
	if val == nil {
		return StatusDisconnected
	}
	return val.(ConnectionStatus)
}

// IsHealthy returns true if the connection is established.
func (m *Client) IsHealthy() bool {
	return m.Status() == StatusConnected
}

// GetConnection returns the current NATS connection
func (m *Client) GetConnection() *nats.Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conn
}

func (m *Client) setStatus(status ConnectionStatus) {
	m.status.Store(status)
}

// Connect establishes the NATS connection and its JetStream context.
// Reconnects are handled by the NATS client itself; status transitions
// are reflected through the handlers below.
func (m *Client) Connect(ctx context.Context) error {
	if m.closed.Load() {
		return errors.WrapInvalid(ErrNotConnected, "Client", "Connect", "client is closed")
	}
	if err := ctx.Err(); err != nil {
		return errors.WrapTransient(err, "Client", "Connect", "context check")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn != nil && m.conn.IsConnected() {
		return nil
	}

	m.setStatus(StatusConnecting)

	opts := []nats.Option{
		nats.Name(m.clientName),
		nats.Timeout(m.timeout),
		nats.MaxReconnects(m.maxReconnects),
		nats.ReconnectWait(m.reconnectWait),
		nats.DrainTimeout(m.drainTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			m.setStatus(StatusReconnecting)
			if err != nil {
				m.logger.Errorf("Disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			m.setStatus(StatusConnected)
			m.logger.Printf("Reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			m.setStatus(StatusDisconnected)
		}),
	}
	if m.username != "" {
		opts = append(opts, nats.UserInfo(m.username, m.password))
	}
	if m.token != "" {
		opts = append(opts, nats.Token(m.token))
	}

	conn, err := nats.Connect(m.url, opts...)
	if err != nil {
		m.setStatus(StatusDisconnected)
		return errors.WrapTransient(err, "Client", "Connect", "connect to "+m.url)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		m.setStatus(StatusDisconnected)
		return errors.Wrap(err, "Client", "Connect", "create JetStream context")
	}

	m.conn = conn
	m.js = js
	m.setStatus(StatusConnected)

	m.logger.Printf("Connected to %s", m.url)

	return nil
}

// JetStream returns the JetStream context, or an error when the client
// has not connected.
func (m *Client) JetStream() (jetstream.JetStream, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.js == nil {
		return nil, errors.WrapTransient(ErrNotConnected, "Client", "JetStream", "check connection")
	}
	return m.js, nil
}

// ObjectStore returns the named object store bucket, creating it when
// it does not exist yet.
func (m *Client) ObjectStore(ctx context.Context, bucket string) (jetstream.ObjectStore, error) {
	js, err := m.JetStream()
	if err != nil {
		return nil, err
	}

	store, err := js.ObjectStore(ctx, bucket)
	if err == nil {
		return store, nil
	}
	if !stderrors.Is(err, jetstream.ErrBucketNotFound) {
		return nil, errors.WrapTransient(err, "Client", "ObjectStore", "lookup bucket "+bucket)
	}

	store, err = js.CreateObjectStore(ctx, jetstream.ObjectStoreConfig{
		Bucket: bucket,
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "Client", "ObjectStore", "create bucket "+bucket)
	}

	m.logger.Printf("Created object store bucket %s", bucket)
	return store, nil
}

// Close drains and closes the connection. Safe to call more than once.
func (m *Client) Close() error {
	m.closeMu.Lock()
	defer m.closeMu.Unlock()

	if m.closed.Swap(true) {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Clear credentials regardless of connection state.
	m.username = ""
	m.password = ""
	m.token = ""

	if m.conn == nil {
		m.setStatus(StatusDisconnected)
		return nil
	}

	conn := m.conn
	m.conn = nil
	m.js = nil

	if err := conn.Drain(); err != nil {
		conn.Close()
		m.setStatus(StatusDisconnected)
		return errors.WrapTransient(err, "Client", "Close", "drain connection")
	}

	m.setStatus(StatusDisconnected)
	return nil
}
