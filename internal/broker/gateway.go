// Package broker owns the single long-lived AMQP connection this process
// holds to the bus and hands out channels to adapters and workers.
//
// The process-wide connection is a singleton by construction: main builds
// exactly one Gateway and passes it by pointer to every component that
// needs a channel. There is no package-level ambient connection. Channel
// allocation is cheap and each adapter/worker gets its own, so a slow
// consumer on one channel never blocks another.
//
// This implementation does not attempt transparent reconnection, relying on
// a supervisor to restart a process against a fresh connection. The workers
// and the liveupdate server stop, and their process exits, once their
// consumer's delivery channel closes. The restmapper does not watch the
// connection: it keeps serving, and calls that need the broker fail with an
// adapter error. NotifyClose is exposed, but no subcommand subscribes to it.
package broker

import (
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Gateway owns the connection and tracks channels it has handed out so it
// can close them, in the order they were opened, on shutdown.
type Gateway struct {
	conn *amqp.Connection

	mux      sync.Mutex
	channels []*amqp.Channel
}

// Connect dials the broker at url (see config.Config.AMQPURL) and returns a
// Gateway ready to hand out channels.
func Connect(url string) (*Gateway, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return &Gateway{conn: conn}, nil
}

// Channel opens a new channel on the shared connection. Callers own the
// returned channel exclusively; it must not be shared across adapters.
func (g *Gateway) Channel() (*amqp.Channel, error) {
	ch, err := g.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	g.mux.Lock()
	g.channels = append(g.channels, ch)
	g.mux.Unlock()
	return ch, nil
}

// NotifyClose exposes the underlying connection's close notification so
// callers can trigger a supervised process exit on connection loss.
func (g *Gateway) NotifyClose() chan *amqp.Error {
	return g.conn.NotifyClose(make(chan *amqp.Error, 1))
}

// Close shuts down every channel this gateway handed out, then the
// connection itself. Errors while closing individual channels are ignored
// since the connection close below is the authoritative teardown.
func (g *Gateway) Close() error {
	g.mux.Lock()
	for _, ch := range g.channels {
		_ = ch.Close()
	}
	g.mux.Unlock()
	if err := g.conn.Close(); err != nil {
		return fmt.Errorf("close broker connection: %w", err)
	}
	return nil
}
