package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/time/rate"

	"github.com/rickgao/pricetables/internal/api"
	"github.com/rickgao/pricetables/internal/auth"
	"github.com/rickgao/pricetables/internal/catalog"
	"github.com/rickgao/pricetables/internal/config"
	"github.com/rickgao/pricetables/internal/database"
	"github.com/rickgao/pricetables/internal/pricetable"
	"github.com/rickgao/pricetables/internal/refresh"
	"github.com/rickgao/pricetables/internal/server"
	"github.com/rickgao/pricetables/internal/users"
	"github.com/rickgao/pricetables/internal/version"
	"github.com/rickgao/pricetables/internal/writer"
)

func main() {
	configPath := flag.String("config", "configs/refresher.local.yaml", "path to config file")
	once := flag.Bool("once", false, "run a single refresh and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "config", *configPath)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting refresher",
		"version", version.Version,
		"commit", version.Commit,
		"instance_id", cfg.Instance.ID,
		"config", *configPath,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Open document store
	store, closeStore, err := database.OpenStore(ctx, cfg.Store, logger)
	if err != nil {
		logger.Error("failed to open document store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// Create provider clients
	eodClient := api.NewEODClient(
		cfg.Providers.EOD.BaseURL,
		cfg.Providers.EOD.APIKey,
		providerOptions(cfg.Providers.EOD, cfg.Retry, logger)...,
	)
	cgClient := api.NewCoinGeckoClient(
		cfg.Providers.CoinGecko.BaseURL,
		cfg.Providers.CoinGecko.APIKey,
		providerOptions(cfg.Providers.CoinGecko, cfg.Retry, logger)...,
	)

	// Assemble the pipeline
	catalogReader := catalog.NewReader(store)
	builder, err := pricetable.NewBuilder(catalogReader, pricetable.ProviderFetchers(eodClient, cgClient), logger)
	if err != nil {
		logger.Error("failed to create price table builder", "error", err)
		os.Exit(1)
	}
	snapshots := writer.NewSnapshotWriter(store, logger)
	job := refresh.NewJob(refresh.Config{
		Skew:    cfg.Refresh.Skew,
		Timeout: cfg.Refresh.Timeout,
	}, builder, snapshots, logger)

	if *once {
		res := job.Run(ctx)
		if res.Err != nil {
			os.Exit(1)
		}
		return
	}

	// Start HTTP API
	srv := server.New(server.Deps{
		Store:     store,
		Catalog:   catalogReader,
		Snapshots: snapshots,
		Users:     users.NewService(store, nil),
		Refresh:   job,
		AdminKey:  auth.NewAdminKey(cfg.Server.AdminKey),
	}, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("starting http server", "port", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Start scheduler
	scheduler, err := refresh.NewScheduler(refresh.SchedulerConfig{
		Schedule:   cfg.Refresh.Schedule,
		RunOnStart: cfg.Refresh.RunOnStart,
	}, job, logger)
	if err != nil {
		logger.Error("failed to create scheduler", "error", err)
		os.Exit(1)
	}
	if err := scheduler.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	logger.Info("refresher running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown", "error", err)
	}
	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.Warn("scheduler stop timed out", "error", err)
	}

	logger.Info("refresher stopped")
}

// newLogger builds the process logger from config.
func newLogger(cfg config.LogConfig) *slog.Logger {
	level, _ := config.ParseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// providerOptions converts provider settings into client options.
func providerOptions(p config.ProviderConfig, r config.RetryConfig, logger *slog.Logger) []api.ClientOption {
	opts := []api.ClientOption{
		api.WithLogger(logger),
		api.WithTimeout(p.Timeout),
		api.WithRetryPolicy(r.Policy()),
	}
	if p.RateLimit > 0 {
		opts = append(opts, api.WithRateLimit(rate.Limit(p.RateLimit), p.Burst))
	}
	return opts
}
