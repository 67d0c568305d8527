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

// runMessagesGet is C8's process entry point.
func runMessagesGet(args []string) error {
	fs := flag.NewFlagSet("messages_get", flag.ExitOnError)
	debug := fs.Bool("debug", false, "include full error text in RPC error replies")
	resolveLevel := verbosityFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	log, err := newLogger("messages_get", resolveLevel())
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

	w, err := worker.NewGetWorker(gw, st, log, *debug)
	if err != nil {
		return fmt.Errorf("init get worker: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return w.Run(ctx)
}
