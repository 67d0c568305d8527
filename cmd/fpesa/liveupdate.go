package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/BenediktSeidl/fpesa/internal/broker"
	"github.com/BenediktSeidl/fpesa/internal/config"
	"github.com/BenediktSeidl/fpesa/internal/liveupdate"
)

// runLiveupdate is C6's process entry point.
func runLiveupdate(args []string) error {
	fs := flag.NewFlagSet("liveupdate", flag.ExitOnError)
	bind := fs.String("bind", "0.0.0.0", "address to listen on")
	port := fs.String("port", "8081", "port to listen on")
	resolveLevel := verbosityFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	log, err := newLogger("liveupdate", resolveLevel())
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

	server, err := liveupdate.NewServer(gw, log)
	if err != nil {
		return fmt.Errorf("init liveupdate server: %w", err)
	}
	defer server.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/", server.HandleWebSocket)

	httpServer := &http.Server{
		Addr:    net.JoinHostPort(*bind, *port),
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runErr := make(chan error, 1)
	go func() {
		runErr <- server.Run(ctx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		log.Info("liveupdate listening", zap.String("addr", httpServer.Addr))
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down liveupdate")
		_ = httpServer.Close()
		return <-runErr
	case err := <-serveErr:
		return err
	case err := <-runErr:
		return err
	}
}
