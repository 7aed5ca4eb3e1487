package gateway

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xraph/talentwire/stream"
)

// Connection represents an authenticated gateway connection. Channel
// membership lives in the broker; the connection carries identity,
// codec, and the write side of the socket.
type Connection struct {
	// ID uniquely identifies this connection.
	ID string

	// Identity is the authenticated identity behind the connection.
	Identity stream.Identity

	// Codec is the negotiated wire format.
	Codec Codec

	// ConnectedAt records when the connection was established.
	ConnectedAt time.Time

	// LastActivity tracks the most recent frame received.
	LastActivity atomic.Value // time.Time

	// writeMu serializes frame writes. Responses and forwarded events
	// come from different goroutines but share the socket.
	writeMu sync.Mutex
	rw      io.ReadWriter
}

// NewConnection creates a connection over the given transport.
func NewConnection(connID string, identity stream.Identity, codec Codec, rw io.ReadWriter) *Connection {
	c := &Connection{
		ID:          connID,
		Identity:    identity,
		Codec:       codec,
		ConnectedAt: time.Now().UTC(),
		rw:          rw,
	}
	c.LastActivity.Store(time.Now().UTC())
	return c
}

// Touch updates the last activity timestamp.
func (c *Connection) Touch() {
	c.LastActivity.Store(time.Now().UTC())
}

// ConnectionManager tracks active gateway connections.
type ConnectionManager struct {
	mu    sync.RWMutex
	conns map[string]*Connection
}

// NewConnectionManager creates an empty connection manager.
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		conns: make(map[string]*Connection),
	}
}

// Add registers a new connection.
func (cm *ConnectionManager) Add(conn *Connection) {
	cm.mu.Lock()
	cm.conns[conn.ID] = conn
	cm.mu.Unlock()
}

// Remove unregisters a connection.
func (cm *ConnectionManager) Remove(connID string) {
	cm.mu.Lock()
	delete(cm.conns, connID)
	cm.mu.Unlock()
}

// Get returns a connection by ID.
func (cm *ConnectionManager) Get(connID string) (*Connection, bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	c, ok := cm.conns[connID]
	return c, ok
}

// Count returns the number of active connections.
func (cm *ConnectionManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.conns)
}

// All returns a snapshot of all connections.
func (cm *ConnectionManager) All() []*Connection {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	out := make([]*Connection, 0, len(cm.conns))
	for _, c := range cm.conns {
		out = append(out, c)
	}
	return out
}
