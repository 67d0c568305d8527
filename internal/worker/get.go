package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strconv"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/BenediktSeidl/fpesa/internal/broker"
	"github.com/BenediktSeidl/fpesa/internal/envelope"
	"github.com/BenediktSeidl/fpesa/internal/store"
)

// getQueue is the wire-visible name of both the RPC request exchange and its
// queue on the Get Worker's side, distinct from the POST fanout exchange.
const getQueue = "/messages/:GET"

// GetWorker is C8.
type GetWorker struct {
	ch    *amqp.Channel
	store *store.Store
	log   *zap.Logger
	debug bool
}

// NewGetWorker declares the direct request exchange/queue and the shared
// RPC reply exchange, and sets prefetch=1. debug controls whether a failure
// reply carries the full error text or the generic "Internal server error".
func NewGetWorker(gw *broker.Gateway, st *store.Store, log *zap.Logger, debug bool) (*GetWorker, error) {
	ch, err := gw.Channel()
	if err != nil {
		return nil, err
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("set prefetch: %w", err)
	}
	if err := broker.DeclareDirectRequest(ch, getQueue, getQueue); err != nil {
		return nil, err
	}
	if err := broker.DeclareReplyExchange(ch); err != nil {
		return nil, err
	}
	return &GetWorker{ch: ch, store: st, log: log, debug: debug}, nil
}

// Run ensures the store schema exists, then consumes RPC requests until ctx
// is cancelled. Unlike the Post Worker, every request is acknowledged
// regardless of outcome: a handler failure is delivered to the waiting RPC
// caller as an error reply instead of being silently dropped or crash-looped.
func (w *GetWorker) Run(ctx context.Context) error {
	if err := w.store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	deliveries, err := w.ch.Consume(getQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume get queue: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			w.handle(ctx, d)
		}
	}
}

func (w *GetWorker) handle(ctx context.Context, d amqp.Delivery) {
	result, err := w.paginate(ctx, d.Body)

	var replyBody []byte
	if err != nil {
		description := "Internal server error"
		if w.debug {
			description = fmt.Sprintf("%s\n%s", err, debug.Stack())
		}
		w.log.Error("rpc handler failed", zap.Error(err))
		replyBody, _ = json.Marshal(envelope.Reply{Error: &envelope.ReplyError{Code: 500, Description: description}})
	} else {
		replyBody, err = json.Marshal(result)
		if err != nil {
			replyBody, _ = json.Marshal(envelope.Reply{Error: &envelope.ReplyError{Code: 500, Description: "Internal server error"}})
		}
	}

	err = w.ch.PublishWithContext(ctx, broker.ReplyExchange, d.CorrelationId, false, false, amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: d.CorrelationId,
		Body:          replyBody,
	})
	if err != nil {
		w.log.Error("publish reply failed", zap.Error(err), zap.String("correlation_id", d.CorrelationId))
	}

	if err := d.Ack(false); err != nil {
		w.log.Error("ack get request failed", zap.Error(err))
	}
}

// paginate decodes the request envelope's args and runs the §4.8 algorithm
// inside the store's own read-only transaction.
func (w *GetWorker) paginate(ctx context.Context, body []byte) (*store.Snapshot, error) {
	env, err := envelope.FromJSON(body)
	if err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	offset, err := strconv.Atoi(env.Args["offset"])
	if err != nil {
		return nil, fmt.Errorf("parse offset: %w", err)
	}
	limit, err := strconv.Atoi(env.Args["limit"])
	if err != nil {
		return nil, fmt.Errorf("parse limit: %w", err)
	}

	var paginationID *int64
	if raw, ok := env.Args["paginationId"]; ok && raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse paginationId: %w", err)
		}
		paginationID = &parsed
	}

	return w.store.Paginate(ctx, offset, limit, paginationID)
}
