package liveupdate

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialClient opens a real WebSocket connection to srv and returns the
// server-side *Client captured via the handler. The client connection stays
// open until the test's cleanup closes it.
func dialClient(t *testing.T, srv *httptest.Server, serverClients chan *Client) *Client {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return <-serverClients
}

func newTestServer(t *testing.T) (*httptest.Server, *Registry, chan *Client) {
	t.Helper()
	registry := NewRegistry()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	captured := make(chan *Client, 8)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		captured <- registry.Add(conn)
	}))
	t.Cleanup(srv.Close)
	return srv, registry, captured
}

func TestRegistryAddAndSnapshot(t *testing.T) {
	srv, registry, captured := newTestServer(t)

	dialClient(t, srv, captured)
	dialClient(t, srv, captured)

	assert.Len(t, registry.Snapshot(), 2)
}

func TestRegistryRemove(t *testing.T) {
	srv, registry, captured := newTestServer(t)

	client := dialClient(t, srv, captured)
	dialClient(t, srv, captured)

	registry.Remove(client)
	assert.Len(t, registry.Snapshot(), 1)

	// Removing an already-removed client is a safe no-op.
	registry.Remove(client)
	assert.Len(t, registry.Snapshot(), 1)
}

func TestRegistryCloseAllEmptiesRegistry(t *testing.T) {
	srv, registry, captured := newTestServer(t)

	dialClient(t, srv, captured)
	dialClient(t, srv, captured)
	require.Len(t, registry.Snapshot(), 2)

	registry.CloseAll()
	assert.Empty(t, registry.Snapshot())
}
