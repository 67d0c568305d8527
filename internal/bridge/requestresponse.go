package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/BenediktSeidl/fpesa/internal/broker"
	"github.com/BenediktSeidl/fpesa/internal/envelope"
)

// RequestResponseAdapter is C4: it publishes a request envelope carrying a
// fresh correlation_id and awaits the matching reply on a private exclusive
// queue, turning an asynchronous broker round trip into a synchronous HTTP
// response.
//
// One adapter instance serves every call to its endpoint concurrently: all
// in-flight RPCs share the adapter's channel and reply queue, disambiguated
// by correlation_id. A single background goroutine (messageListener) owns
// the reply queue's consumer and routes each delivery to the waiter that is
// expecting it, mirroring the corr_id -> completion handle map the spec
// calls for.
type RequestResponseAdapter struct {
	log *zap.Logger

	ch              *amqp.Channel
	requestExchange string
	replyQueue      string

	mux     sync.Mutex
	waiters map[string]chan *amqp.Delivery
}

// NewRequestResponseAdapter opens a dedicated channel with prefetch=1,
// declares the request exchange/queue and a private exclusive reply queue,
// and starts the background reply listener.
func NewRequestResponseAdapter(gw *broker.Gateway, endpointName string, log *zap.Logger) (*RequestResponseAdapter, error) {
	ch, err := gw.Channel()
	if err != nil {
		return nil, err
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("set prefetch: %w", err)
	}
	if err := broker.DeclareDirectRequest(ch, endpointName, endpointName); err != nil {
		return nil, err
	}
	replyQueue, err := broker.DeclareExclusiveReplyQueue(ch)
	if err != nil {
		return nil, err
	}

	deliveries, err := ch.Consume(replyQueue, "", false, true, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume reply queue: %w", err)
	}

	a := &RequestResponseAdapter{
		log:             log,
		ch:              ch,
		requestExchange: endpointName,
		replyQueue:      replyQueue,
		waiters:         make(map[string]chan *amqp.Delivery),
	}
	go a.messageListener(deliveries)
	return a, nil
}

// messageListener drains the adapter's private reply queue for its entire
// lifetime. Every delivery is acknowledged here, exactly once, regardless of
// whether a waiter is found: a match hands the delivery to the waiting call;
// a miss is discarded, since the spec treats that as a defensive case that
// can only occur on broker misrouting.
func (a *RequestResponseAdapter) messageListener(deliveries <-chan amqp.Delivery) {
	for d := range deliveries {
		delivery := d
		_ = delivery.Ack(false)
		a.mux.Lock()
		waiter, ok := a.waiters[delivery.CorrelationId]
		a.mux.Unlock()

		if !ok {
			a.log.Debug("discarding unmatched reply", zap.String("correlation_id", delivery.CorrelationId))
			continue
		}
		waiter <- &delivery
	}
}

// Adapt publishes the request and blocks until the matching reply arrives
// or ctx is done. Either way the per-call routing key binding and waiter
// entry are cleaned up before returning, so a late reply is consumed and
// discarded by messageListener rather than ever reaching a later caller.
func (a *RequestResponseAdapter) Adapt(ctx context.Context, data json.RawMessage, args map[string]string) (json.RawMessage, error) {
	corrID, err := envelope.NewCorrelationID()
	if err != nil {
		return nil, AdapterFailure(err.Error())
	}

	waiter := make(chan *amqp.Delivery, 1)
	a.mux.Lock()
	a.waiters[corrID] = waiter
	a.mux.Unlock()
	defer func() {
		a.mux.Lock()
		delete(a.waiters, corrID)
		a.mux.Unlock()
		if err := broker.UnbindReplyRoutingKey(a.ch, a.replyQueue, corrID); err != nil {
			a.log.Warn("unbind reply routing key", zap.Error(err), zap.String("correlation_id", corrID))
		}
	}()

	if err := broker.BindReplyRoutingKey(a.ch, a.replyQueue, corrID); err != nil {
		return nil, AdapterFailure(err.Error())
	}

	body, err := envelope.New(data, args).ToJSON()
	if err != nil {
		return nil, AdapterFailure(fmt.Sprintf("encode envelope: %s", err))
	}

	err = a.ch.PublishWithContext(ctx, a.requestExchange, a.requestExchange, false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		CorrelationId: corrID,
		ReplyTo:       a.replyQueue,
		Body:          body,
	})
	if err != nil {
		return nil, AdapterFailure(fmt.Sprintf("publish request: %s", err))
	}

	select {
	case delivery := <-waiter:
		return parseReply(delivery.Body)
	case <-ctx.Done():
		return nil, AdapterFailure("timed out waiting for reply")
	}
}

// parseReply interprets a worker's reply body. A worker-reported failure is
// surfaced verbatim as an *Error carrying the worker's code/description;
// anything else is returned as the raw result to serialize.
func parseReply(body []byte) (json.RawMessage, error) {
	var wrapped struct {
		Error *envelope.ReplyError `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Error != nil {
		return nil, &Error{Code: wrapped.Error.Code, Description: wrapped.Error.Description}
	}
	return body, nil
}
