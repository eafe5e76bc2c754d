// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package main is the entry point for the isomer server. It loads
// configuration, connects to services, serves the editor API and runs the
// scheduled publisher until it receives a shutdown signal.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"isomer/internal/cache"
	"isomer/internal/config"
	"isomer/internal/database"
	"isomer/internal/handlers"
	"isomer/internal/publisher"
	"isomer/internal/router"
	"isomer/internal/scheduler"
	"isomer/internal/search"
	"isomer/internal/storage"
	"isomer/internal/store"
)

// publisherJob names the scheduled publisher in the registry and in the
// singleton lock.
const publisherJob = "scheduled-publisher"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(cfg.NewLogger(os.Stderr))

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
	)

	ctx := context.Background()

	db, err := database.Connect(ctx, cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed a demo site in development (no-op if one exists).
	if cfg.IsDev() {
		if err := database.Seed(ctx, db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	valkeyClient, err := cache.ConnectValkey(ctx, cache.ValkeyOptions{
		Host:     cfg.ValkeyHost,
		Port:     cfg.ValkeyPort,
		Password: cfg.ValkeyPassword,
		Attempts: 5,
	})
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	blobCache := cache.NewBlobCache(valkeyClient, cache.DefaultBlobTTL)

	siteStore := store.NewSiteStore(db)
	resourceStore := store.NewResourceStore(db)
	blobStore := store.NewBlobStore(db, blobCache)
	versionStore := store.NewVersionStore(db, blobCache)
	jobStore := store.NewScheduledJobStore(db)

	deps := publisher.Deps{
		Jobs:     jobStore,
		Versions: versionStore,
		Paths:    resourceStore,
	}

	// Storage and search are optional; without them document pushes are
	// dropped but scheduled publishing still runs.
	storageClient, err := storage.New(
		cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey,
		cfg.S3AssetsBucket, cfg.S3PublicURL,
	)
	if err != nil {
		slog.Error("failed to initialize S3 storage", "error", err)
		os.Exit(1)
	}
	if storageClient != nil {
		deps.Assets = storageClient
		slog.Info("s3 storage connected", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3AssetsBucket)
	} else {
		slog.Warn("s3 storage not configured, document pushes will be dropped")
	}

	if cfg.SearchEnabled() {
		deps.Index = search.New(search.Config{
			BaseURL:      cfg.SearchBaseURL,
			ClientID:     cfg.SearchClientID,
			ClientSecret: cfg.SearchClientSecret,
			IndexID:      cfg.SearchIndexID,
		})
		slog.Info("search index configured", "base_url", cfg.SearchBaseURL, "index_id", cfg.SearchIndexID)
	} else {
		slog.Warn("search index not configured, document pushes will be dropped")
	}

	pub := publisher.New(deps, cfg.SiteBaseURL)

	registry := scheduler.NewJobRegistry(scheduler.ValkeyLocker(cache.NewLocker(valkeyClient)), cfg.JobLockTTL)
	err = registry.Register(publisherJob, cfg.PublisherCron,
		func(ctx context.Context) error {
			_, err := pub.Run(ctx)
			return err
		},
		scheduler.JobOptions{RetryLimit: cfg.PublisherRetryLimit, SingletonKey: publisherJob},
		cfg.PublisherHeartbeatURL,
	)
	if err != nil {
		slog.Error("failed to register scheduled publisher", "error", err)
		os.Exit(1)
	}

	api := handlers.NewAPI(siteStore, resourceStore, blobStore, versionStore, jobStore)
	r := router.New(api)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	registry.Start()
	slog.Info("scheduler started", "job", publisherJob, "cron", cfg.PublisherCron)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	// Give active requests and a running publisher up to 30 seconds.
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var g errgroup.Group
	g.Go(func() error { return srv.Shutdown(shutdownCtx) })
	g.Go(func() error { return registry.Shutdown(shutdownCtx) })
	if err := g.Wait(); err != nil {
		slog.Error("forced shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
