package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/BenediktSeidl/fpesa/internal/bridge"
	"github.com/BenediktSeidl/fpesa/internal/broker"
	"github.com/BenediktSeidl/fpesa/internal/config"
)

// runRestmapper is C5's process entry point: it owns the broker gateway,
// binds C3/C4 adapters to the standard endpoint declarations, and serves
// the HTTP dispatcher until interrupted.
func runRestmapper(args []string) error {
	fs := flag.NewFlagSet("restmapper", flag.ExitOnError)
	bind := fs.String("bind", "0.0.0.0", "address to listen on")
	port := fs.String("port", "8080", "port to listen on")
	resolveLevel := verbosityFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	log, err := newLogger("restmapper", resolveLevel())
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

	endpoints, err := bridge.StandardEndpoints()
	if err != nil {
		return err
	}
	if err := bridge.BindAdapters(gw, log, endpoints); err != nil {
		return fmt.Errorf("bind adapters: %w", err)
	}

	dispatcher := bridge.NewDispatcher(log)
	for _, ep := range endpoints {
		dispatcher.RegisterEndpoint(ep)
		log.Info("registered endpoint", zap.String("name", ep.Name()))
	}
	dispatcher.Finalize()

	server := &http.Server{
		Addr:    net.JoinHostPort(*bind, *port),
		Handler: dispatcher,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Info("restmapper listening", zap.String("addr", server.Addr))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down restmapper")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
	}
	return nil
}
