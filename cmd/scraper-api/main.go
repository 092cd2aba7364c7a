package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/zarawatch/catalog-scraper/internal/api"
	"github.com/zarawatch/catalog-scraper/internal/config"
	"github.com/zarawatch/catalog-scraper/internal/events"
	"github.com/zarawatch/catalog-scraper/internal/extractor"
	"github.com/zarawatch/catalog-scraper/internal/fetcher"
	"github.com/zarawatch/catalog-scraper/internal/pipeline"
	"github.com/zarawatch/catalog-scraper/internal/reconciler"
	"github.com/zarawatch/catalog-scraper/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Page source
	var source fetcher.PageSource
	if cfg.Fetcher.Mode == config.FetchModeBrowser {
		b, err := fetcher.NewBrowser(cfg.Fetcher, cfg.Browser, logger)
		if err != nil {
			logger.Error("failed to initialize browser", "error", err)
			os.Exit(1)
		}
		defer b.Close()
		source = b
	} else {
		source = fetcher.NewClient(cfg.Fetcher, logger)
	}

	// Store: Postgres when configured, in-memory fallback otherwise.
	var st store.Store
	var db *store.DB
	if cfg.DatabaseConfigured() {
		db, err = store.NewDB(ctx, store.DBConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			Database: cfg.Database.Name,
			MaxConns: cfg.Database.MaxConns,
		})
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		if err := db.Migrate(ctx); err != nil {
			logger.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		st = store.NewPostgres(db, logger)
	} else {
		logger.Warn("no database configured, using in-memory store")
		st = store.NewMemory()
	}
	defer st.Close()

	p := pipeline.New(source, extractor.New(cfg.Catalog.DefaultCategory, logger), reconciler.New(logger), st, cfg.Catalog.BaseURL, logger)

	// Outbox publisher and Redis relay need both Postgres and Redis.
	if db != nil && cfg.RedisConfigured() {
		outbox := store.NewOutboxRepository(db, cfg.Redis.Stream)
		p.WithPublisher(events.NewPublisher(db, outbox, logger))

		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}

		relay := store.NewRelay(outbox, redisClient, logger, store.RelayConfig{})
		go func() {
			if err := relay.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("relay stopped with error", "error", err)
			}
		}()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	handlers := api.NewHandlers(p, st, logger)
	handlers.Routes(r)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// Give the relay time to drain in-flight events.
	cancel()
	time.Sleep(100 * time.Millisecond)
}
