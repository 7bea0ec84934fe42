package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diomir0/idlearn/internal/api"
	"github.com/diomir0/idlearn/internal/config"
	"github.com/diomir0/idlearn/internal/document"
	"github.com/diomir0/idlearn/internal/infer"
	"github.com/diomir0/idlearn/internal/pipeline"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize inference client.
	var client infer.Client
	switch cfg.InferBackend {
	case "openai":
		client = infer.NewOpenAIClient(cfg.InferURL, cfg.InferAPIKey, cfg.InferModel, cfg.InferTemperature, cfg.InferTimeout)
	default:
		client = infer.NewOllamaClient(cfg.InferURL, cfg.InferModel, cfg.InferTemperature, cfg.InferTimeout)
	}
	stats := infer.NewStats(1 * time.Hour)

	// Initialize stores and pipeline.
	docs := document.NewStore(cfg.DocumentTTL)
	orch := pipeline.NewOrchestrator(cfg, docs, client, stats, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, docs, stats, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		client.Close()
	}()

	log.Info("starting idlearn", "port", cfg.Port, "backend", cfg.InferBackend, "model", cfg.InferModel)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
