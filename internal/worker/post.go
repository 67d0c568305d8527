// Package worker implements the two backend workers that complete the
// bridge's loop: the Post Worker (C7) drains fire-and-forget publications
// into durable storage, and the Get Worker (C8) serves paginated RPC reads
// against that same storage.
package worker

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/BenediktSeidl/fpesa/internal/broker"
	"github.com/BenediktSeidl/fpesa/internal/envelope"
	"github.com/BenediktSeidl/fpesa/internal/store"
)

// postQueue is the wire-visible name shared with C3's fanout declaration.
const postQueue = "/messages/:POST"

// PostWorker is C7.
type PostWorker struct {
	ch    *amqp.Channel
	store *store.Store
	log   *zap.Logger
}

// NewPostWorker declares the shared fanout exchange/queue (idempotent with
// C3's own declaration) and sets prefetch=1 to bound in-flight work.
func NewPostWorker(gw *broker.Gateway, st *store.Store, log *zap.Logger) (*PostWorker, error) {
	ch, err := gw.Channel()
	if err != nil {
		return nil, err
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("set prefetch: %w", err)
	}
	if err := broker.DeclareFanout(ch, postQueue, postQueue); err != nil {
		return nil, err
	}
	return &PostWorker{ch: ch, store: st, log: log}, nil
}

// Run ensures the store's schema exists, then consumes the POST queue with
// manual acknowledgement until ctx is cancelled. A message is acked only
// after it has been successfully inserted; any failure to parse or insert
// is left unacked and Run returns the error, so main can exit the process
// and let the supervisor restart it against the still-durable message.
func (w *PostWorker) Run(ctx context.Context) error {
	if err := w.store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	deliveries, err := w.ch.Consume(postQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume post queue: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			if err := w.handle(ctx, d); err != nil {
				w.log.Error("poison post message, exiting for supervised restart", zap.Error(err))
				return err
			}
		}
	}
}

func (w *PostWorker) handle(ctx context.Context, d amqp.Delivery) error {
	env, err := envelope.FromJSON(d.Body)
	if err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}

	if _, err := w.store.Insert(ctx, env.Data); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	if err := d.Ack(false); err != nil {
		return fmt.Errorf("ack message: %w", err)
	}
	return nil
}
