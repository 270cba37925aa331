package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"securetransfer/internal/platform/config"
	"securetransfer/internal/platform/httpserver"
	"securetransfer/internal/platform/logger"
)

// main wires dependencies, serves the HTTP API and shuts down in order:
// stop accepting requests, let running transfers finish, then flush audit.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := build(ctx, cfg, log)
	if err != nil {
		log.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer app.close()

	srv := httpserver.New(cfg.Addr, app.router, httpserver.WithLogger(log))
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting securetransfer", "addr", cfg.Addr, "identities", app.keys.Identities())
		return httpserver.ListenAndServe(srv)
	})
	if app.sweeper != nil {
		g.Go(func() error {
			if err := app.sweeper.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		if err := app.dispatcher.Wait(shutdownCtx); err != nil {
			log.Warn("transfers still running at shutdown", "in_flight", app.dispatcher.InFlight(), "error", err)
		}
		app.auditor.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("securetransfer stopped")
}
