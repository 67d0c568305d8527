package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/BenediktSeidl/fpesa/internal/broker"
	"github.com/BenediktSeidl/fpesa/internal/config"
	"github.com/BenediktSeidl/fpesa/internal/store"
	"github.com/BenediktSeidl/fpesa/internal/worker"
)

// runMessagesPost is C7's process entry point. It exits non-zero (rather
// than retrying internally) on any poison message so a supervisor can
// restart it against a fresh connection; the durable queue preserves the
// unacked message across that restart.
func runMessagesPost(args []string) error {
	fs := flag.NewFlagSet("messages_post", flag.ExitOnError)
	resolveLevel := verbosityFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	log, err := newLogger("messages_post", resolveLevel())
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gw, err := broker.Connect(cfg.AMQPURL())
	if err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	defer gw.Close()

	st, err := store.Open(cfg.PostgresDSN())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	w, err := worker.NewPostWorker(gw, st, log)
	if err != nil {
		return fmt.Errorf("init post worker: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return w.Run(ctx)
}
