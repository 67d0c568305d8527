package bridge

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/BenediktSeidl/fpesa/internal/broker"
	"github.com/BenediktSeidl/fpesa/internal/envelope"
)

// FireForgetAdapter is C3: it publishes {data, args} onto a fanout exchange
// named after the endpoint and returns immediately. No acknowledgement from
// downstream workers is awaited; the only thing that can fail here is the
// publish itself.
type FireForgetAdapter struct {
	ch       *amqp.Channel
	exchange string
}

// NewFireForgetAdapter opens a dedicated channel on gw, declares the fanout
// exchange and its durable queue (so messages published before any consumer
// starts are retained), and binds them.
func NewFireForgetAdapter(gw *broker.Gateway, endpointName string) (*FireForgetAdapter, error) {
	ch, err := gw.Channel()
	if err != nil {
		return nil, err
	}
	if err := broker.DeclareFanout(ch, endpointName, endpointName); err != nil {
		return nil, err
	}
	return &FireForgetAdapter{ch: ch, exchange: endpointName}, nil
}

// Adapt publishes the envelope to the fanout exchange with an empty routing
// key and returns an empty JSON object, matching the spec's "return {}"
// contract.
func (a *FireForgetAdapter) Adapt(ctx context.Context, data json.RawMessage, args map[string]string) (json.RawMessage, error) {
	body, err := envelope.New(data, args).ToJSON()
	if err != nil {
		return nil, AdapterFailure(fmt.Sprintf("encode envelope: %s", err))
	}

	err = a.ch.PublishWithContext(ctx, a.exchange, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return nil, AdapterFailure(fmt.Sprintf("publish to %q: %s", a.exchange, err))
	}
	return json.RawMessage("{}"), nil
}
