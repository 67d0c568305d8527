package liveupdate

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeAcknowledger records whether Ack was called, standing in for the
// broker channel a real delivery would be bound to.
type fakeAcknowledger struct {
	acked bool
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error          { f.acked = true; return nil }
func (f *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error { return nil }
func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error        { return nil }

func TestDispatchExtractsDataFieldAndAcks(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	registry := NewRegistry()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		registry.Add(conn)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer client.Close()

	// Give the server a moment to register the connection before dispatch.
	require.Eventually(t, func() bool { return len(registry.Snapshot()) == 1 }, time.Second, 10*time.Millisecond)

	s := &Server{log: zap.NewNop(), registry: registry}
	ack := &fakeAcknowledger{}
	delivery := amqp.Delivery{
		Acknowledger: ack,
		Body:         []byte(`{"data": {"a": 2}, "args": null}`),
	}

	s.dispatch(delivery)

	assert.True(t, ack.acked)

	_ = client.SetReadDeadline(time.Now().Add(time.Second))
	_, message, err := client.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2}`, string(message))
}

func TestDispatchRemovesClientOnSendFailure(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	registry := NewRegistry()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		registry.Add(conn)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(registry.Snapshot()) == 1 }, time.Second, 10*time.Millisecond)

	// Close the client side so the next server-side write fails.
	require.NoError(t, client.Close())

	s := &Server{log: zap.NewNop(), registry: registry}
	ack := &fakeAcknowledger{}

	require.Eventually(t, func() bool {
		s.dispatch(amqp.Delivery{Acknowledger: ack, Body: []byte(`{"data": 1}`)})
		return len(registry.Snapshot()) == 0
	}, time.Second, 10*time.Millisecond)
}
