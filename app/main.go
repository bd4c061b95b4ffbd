package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"newshub/app/api"
	"newshub/app/cfg"
	"newshub/app/embedding"
	"newshub/app/news"
	"newshub/app/sources"
	"newshub/app/store"
	"newshub/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting NewsHub server", "version", appCfg.Version)

	db, err := store.Open(appCfg.DBPath, appCfg.MaxDetails)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	sourceConfigs := sources.NewCache(appCfg.SourcesDir)
	if err := sourceConfigs.Run(); err != nil {
		slog.Error("Failed to load source configurations", "dir", appCfg.SourcesDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Source configurations loaded", "count", sourceConfigs.GetConfigCount())

	httpClient := &http.Client{Timeout: 30 * time.Second}
	embedder := embedding.NewClient(appCfg.OpenAIAPIKey, appCfg.EmbeddingModel)

	fetcher := news.NewSourceFetcher(httpClient, appCfg.UserAgent)
	aggregator := news.NewAggregator(db, fetcher, sourceConfigs, time.Duration(appCfg.ListTTL)*time.Second)
	enricher := news.NewEnricher(db, sourceConfigs, embedder, httpClient, appCfg.UserAgent)
	recommender := news.NewRecommender(aggregator, db, db)

	scheduler := tasks.NewScheduler(aggregator, enricher, db)
	scheduler.Start()
	defer scheduler.Stop()
	slog.Info("Background scheduler started", "workers", appCfg.WorkerCount)

	handler := api.NewHandler(aggregator, enricher, recommender, db, sourceConfigs)
	server := api.NewServer(handler)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}
