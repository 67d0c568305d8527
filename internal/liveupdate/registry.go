// Package liveupdate implements C6: a WebSocket server that fans out every
// message flowing through the POST fanout exchange to every live client.
package liveupdate

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// writeWait bounds how long a single WriteMessage call (data frame or ping)
// may block before the connection is considered dead.
const writeWait = 10 * time.Second

// Client wraps one accepted connection with the write-side mutex gorilla's
// websocket package requires: it permits at most one concurrent reader and
// one concurrent writer per connection, but this server has two independent
// writers (the fanout dispatcher and the ping loop) racing to write to the
// same connection, so every write is funneled through WriteMessage here.
type Client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// WriteMessage sends one frame, serialized against any other concurrent
// writer for this connection.
func (c *Client) WriteMessage(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}

// Close closes the underlying connection. Safe to call even if a writer is
// blocked; gorilla unblocks pending reads/writes on Close.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Registry is the unordered set of live client connections. It is mutated
// from three places — the accept path, the per-client read pump on close,
// and the fanout dispatcher on send failure — so access is guarded by a
// mutex rather than left to a single cooperative event loop.
type Registry struct {
	mux     sync.Mutex
	clients map[*Client]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[*Client]struct{})}
}

// Add wraps a newly accepted connection in a Client and registers it.
func (r *Registry) Add(conn *websocket.Conn) *Client {
	c := &Client{conn: conn}
	r.mux.Lock()
	r.clients[c] = struct{}{}
	r.mux.Unlock()
	return c
}

// Remove drops a client from the registry. It is safe to call more than once
// for the same client (e.g. from both the read pump and the fanout
// dispatcher racing to notice the same dead peer).
func (r *Registry) Remove(c *Client) {
	r.mux.Lock()
	delete(r.clients, c)
	r.mux.Unlock()
}

// Snapshot returns the clients currently registered, to fan a single message
// out to. Taking a snapshot rather than holding the lock during the fan-out
// means a connection added mid-dispatch simply misses this message, matching
// the spec's "no replay" guarantee.
func (r *Registry) Snapshot() []*Client {
	r.mux.Lock()
	defer r.mux.Unlock()
	out := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		out = append(out, c)
	}
	return out
}

// CloseAll closes every registered connection and empties the registry. Used
// during shutdown.
func (r *Registry) CloseAll() {
	r.mux.Lock()
	defer r.mux.Unlock()
	for c := range r.clients {
		_ = c.Close()
	}
	r.clients = make(map[*Client]struct{})
}
