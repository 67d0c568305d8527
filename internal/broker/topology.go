package broker

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ReplyExchange is the single direct exchange every Request/Response
// adapter's worker publishes replies to. Its name is wire-visible and fixed
// across the whole deployment.
const ReplyExchange = "RPC"

// DeclareFanout declares a durable fanout exchange and a durable queue bound
// to it with an empty routing key. Declaring the same pair twice with
// identical parameters is a no-op; the broker itself rejects a redeclaration
// with different durability. Used by the Fire-and-Forget adapter (C3) and
// mirrored by its consumers (C7, the WebSocket fanout's liveupdate queue).
func DeclareFanout(ch *amqp.Channel, exchange, queue string) error {
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare fanout exchange %q: %w", exchange, err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %q: %w", queue, err)
	}
	if err := ch.QueueBind(queue, "", exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %q to exchange %q: %w", queue, exchange, err)
	}
	return nil
}

// DeclareDirectRequest declares a durable direct exchange and a durable
// queue bound to it under the same name, used to carry RPC requests (C4)
// from the adapter to the Get Worker (C8).
func DeclareDirectRequest(ch *amqp.Channel, exchange, queue string) error {
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare direct exchange %q: %w", exchange, err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %q: %w", queue, err)
	}
	if err := ch.QueueBind(queue, queue, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %q to exchange %q: %w", queue, exchange, err)
	}
	return nil
}

// DeclareReplyExchange declares the shared RPC direct exchange that every
// worker's reply is published to.
func DeclareReplyExchange(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(ReplyExchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare reply exchange: %w", err)
	}
	return nil
}

// DeclareExclusiveReplyQueue declares a broker-assigned, exclusive,
// non-durable queue private to one Request/Response adapter instance, after
// declaring the shared reply exchange. It does not bind the queue: this
// implementation routes replies by correlation_id (see internal/bridge), so
// callers bind it with BindReplyRoutingKey once per in-flight call rather
// than once per adapter lifetime.
func DeclareExclusiveReplyQueue(ch *amqp.Channel) (string, error) {
	if err := DeclareReplyExchange(ch); err != nil {
		return "", err
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return "", fmt.Errorf("declare exclusive reply queue: %w", err)
	}
	return q.Name, nil
}

// BindReplyRoutingKey binds the adapter's private reply queue to the shared
// RPC exchange for one additional routing key (one per in-flight
// correlation id).
func BindReplyRoutingKey(ch *amqp.Channel, queue, routingKey string) error {
	if err := ch.QueueBind(queue, routingKey, ReplyExchange, false, nil); err != nil {
		return fmt.Errorf("bind reply queue to routing key %q: %w", routingKey, err)
	}
	return nil
}

// UnbindReplyRoutingKey removes a per-call routing key binding once its
// reply has been matched or its caller has timed out, so the exchange does
// not accumulate stale bindings across the adapter's lifetime.
func UnbindReplyRoutingKey(ch *amqp.Channel, queue, routingKey string) error {
	if err := ch.QueueUnbind(queue, routingKey, ReplyExchange, nil); err != nil {
		return fmt.Errorf("unbind reply queue from routing key %q: %w", routingKey, err)
	}
	return nil
}
