package liveupdate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/BenediktSeidl/fpesa/internal/broker"
)

// postExchange and liveupdateQueue are wire-visible names that must match
// C3's fanout declaration exactly.
const (
	postExchange    = "/messages/:POST"
	liveupdateQueue = "liveupdate"
	pingInterval    = 10 * time.Second
	// pongWait is how long a connection may go without a pong before its
	// read pump gives up on it. It must comfortably exceed pingInterval so
	// one delayed pong doesn't trip a false disconnect.
	pongWait = 25 * time.Second
)

// Server is C6. It owns the WebSocket client registry and the consumer on
// the shared liveupdate queue.
type Server struct {
	log      *zap.Logger
	registry *Registry
	upgrader websocket.Upgrader

	ch *amqp.Channel
}

// NewServer declares the fanout exchange (matching C3), the durable
// liveupdate queue, and binds them, on a dedicated channel.
func NewServer(gw *broker.Gateway, log *zap.Logger) (*Server, error) {
	ch, err := gw.Channel()
	if err != nil {
		return nil, err
	}
	if err := broker.DeclareFanout(ch, postExchange, liveupdateQueue); err != nil {
		return nil, err
	}

	return &Server{
		log:      log,
		registry: NewRegistry(),
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		ch:       ch,
	}, nil
}

// Run consumes the liveupdate queue until ctx is cancelled, fanning each
// message's data field out to every live client. It blocks until the
// consumer is drained and the registry has been closed.
func (s *Server) Run(ctx context.Context) error {
	deliveries, err := s.ch.Consume(liveupdateQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume liveupdate queue: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			s.registry.CloseAll()
			return nil
		case d, ok := <-deliveries:
			if !ok {
				s.registry.CloseAll()
				return nil
			}
			s.dispatch(d)
		}
	}
}

// dispatch extracts the data field from a broker message and forwards it as
// a text frame to every currently-registered client, removing any
// connection whose send fails before acknowledging the broker message.
func (s *Server) dispatch(d amqp.Delivery) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(d.Body, &envelope); err != nil {
		s.log.Error("discarding malformed liveupdate message", zap.Error(err))
		_ = d.Ack(false)
		return
	}

	for _, client := range s.registry.Snapshot() {
		if err := client.WriteMessage(websocket.TextMessage, envelope.Data); err != nil {
			s.log.Debug("removing client after send failure", zap.Error(err))
			s.registry.Remove(client)
			_ = client.Close()
		}
	}

	_ = d.Ack(false)
}

// HandleWebSocket upgrades the connection, registers it, and runs its read
// pump and keepalive ping loop until the client disconnects, its pong times
// out, or a ping fails.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := s.registry.Add(conn)
	defer s.registry.Remove(client)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.readPump(conn)
	}()

	s.pingLoop(client, done)
}

// readPump discards any client-sent frames; its only purpose is to keep
// reading so gorilla invokes the pong handler and advances the read
// deadline on every pong. It returns once the peer closes the connection or
// a pong fails to arrive within pongWait, which in turn ends pingLoop.
func (s *Server) readPump(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// pingLoop sends a ping every pingInterval, through the same write mutex
// dispatch uses, until a ping fails or done is closed by a dead read pump.
func (s *Server) pingLoop(client *Client, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := client.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.log.Debug("ping failed, dropping client", zap.Error(err))
				return
			}
		}
	}
}

// Close tears down the consumer's channel. The registry is already emptied
// by Run's shutdown path.
func (s *Server) Close() error {
	return s.ch.Close()
}
