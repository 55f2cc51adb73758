package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"supportdesk/internal/api"
	"supportdesk/internal/config"
	"supportdesk/internal/dialogs"
	"supportdesk/internal/reconcile"
	"supportdesk/internal/seed"
	"supportdesk/internal/store"
	"supportdesk/internal/view"
)

func main() {
	// Local development convenience; absence of .env is fine.
	_ = godotenv.Load()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("starting server", "name", cfg.Server.Name)

	messages := store.New()
	registry := dialogs.NewRegistry(cfg.Dialogs.PageSize)

	if cfg.Dialogs.Seed {
		seed.Load(registry, messages)
		slog.Info("demo data loaded", "dialogs", len(registry.Active()))
	}

	reconciler := reconcile.New(messages,
		reconcile.WithProbeTimeout(cfg.Probe.Timeout),
		reconcile.WithProbeMaxBytes(cfg.Probe.MaxBytes),
	)
	feed := view.NewFeed(messages, reconciler)
	reconciler.SetView(feed)
	messages.Subscribe(feed.OnStoreEvent)

	server, err := api.NewServer(cfg, messages, registry, feed, reconciler)
	if err != nil {
		slog.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	addr := cfg.Addr()
	httpServer := &http.Server{
		Addr:    addr,
		Handler: server,
	}

	go func() {
		slog.Info("server listening", "addr", addr, "base_url", cfg.Server.BaseURL)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	slog.Info("shutting down")

	server.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	// Let in-flight attachment probes settle before exit.
	reconciler.Wait()

	slog.Info("server stopped")
}
