// Package main is the entrypoint for the TubeBrief API server.
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

	"github.com/tubebrief/tubebrief/internal/ai"
	"github.com/tubebrief/tubebrief/internal/api"
	"github.com/tubebrief/tubebrief/internal/api/handler"
	mw "github.com/tubebrief/tubebrief/internal/api/middleware"
	"github.com/tubebrief/tubebrief/internal/api/response"
	"github.com/tubebrief/tubebrief/internal/cache"
	"github.com/tubebrief/tubebrief/internal/config"
	"github.com/tubebrief/tubebrief/internal/events"
	"github.com/tubebrief/tubebrief/internal/export"
	"github.com/tubebrief/tubebrief/internal/queue"
	"github.com/tubebrief/tubebrief/internal/quota"
	"github.com/tubebrief/tubebrief/internal/service"
	"github.com/tubebrief/tubebrief/internal/storage"
	"github.com/tubebrief/tubebrief/internal/store"
	"github.com/tubebrief/tubebrief/internal/transcript"
	"github.com/tubebrief/tubebrief/internal/tts"
	"github.com/tubebrief/tubebrief/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "ai_provider", cfg.AI.Provider, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Connect RabbitMQ and declare the two job queues
	mq, err := queue.Dial(cfg.Queue.URL, logger)
	if err != nil {
		return fmt.Errorf("connect rabbitmq: %w", err)
	}
	defer mq.Close()

	summaryQueue, err := mq.DeclareQueue(cfg.Queue.SummaryQueue)
	if err != nil {
		return fmt.Errorf("declare summary queue: %w", err)
	}
	audioQueue, err := mq.DeclareQueue(cfg.Queue.AudioQueue)
	if err != nil {
		return fmt.Errorf("declare audio queue: %w", err)
	}

	// 6. Create AI provider and retrier
	aiProvider, err := ai.NewProvider(cfg.AI)
	if err != nil {
		return fmt.Errorf("create AI provider: %w", err)
	}
	retrier := ai.NewRetrier(cfg.AI.MaxAttempts, cfg.AI.BackoffBase)
	slog.Info("AI provider initialized", "provider", aiProvider.Name())

	// 7. Create store, transcript acquirer, exporters, media storage
	pgStore := store.NewPostgresStore(pool)

	acquirer := transcript.NewAcquirer(
		transcript.NewHTTPClient(cfg.Transcript.BaseURL, cfg.Transcript.Timeout),
		cfg.Transcript.Languages,
		logger,
	)
	notion := export.NewNotionClient(cfg.Notion.BaseURL, cfg.Notion.Timeout)
	speech := tts.NewOpenAIClient(cfg.TTS.APIKey, cfg.TTS.Model, cfg.TTS.Timeout)

	objects, err := storage.NewLocalStore(cfg.Storage.Dir, cfg.Storage.BaseURL)
	if err != nil {
		return fmt.Errorf("create media storage: %w", err)
	}

	bus := events.NewRedisBus(redisCache.Client())

	// 8. Start the queue consumers
	summaryWorker := worker.NewSummaryWorker(
		pgStore, redisCache, acquirer, aiProvider, retrier, notion, bus, logger)
	audioWorker := worker.NewAudioWorker(
		pgStore, speech, objects, bus, cfg.TTS.Voice, logger)

	consumers := []*queue.Consumer{
		queue.NewConsumer(summaryQueue, cfg.Queue.SummaryWorkers,
			summaryWorker.Handle, summaryWorker.OnFailure),
		queue.NewConsumer(audioQueue, cfg.Queue.AudioWorkers,
			audioWorker.Handle, nil),
	}

	errCh := make(chan error, len(consumers)+1)
	for _, c := range consumers {
		c := c
		go func() {
			if err := c.Run(ctx); err != nil {
				errCh <- fmt.Errorf("consumer: %w", err)
			}
		}()
	}

	// 9. Build the admission service and router
	gate := quota.NewGate(pgStore, quota.NewEmailListResolver(pgStore, cfg.Quota.PrivilegedEmails))
	admission := service.NewAdmissionService(pgStore, redisCache, gate, summaryQueue, audioQueue, logger)

	deps := api.Dependencies{
		Auth:      mw.NewAuth(pgStore),
		RateLimit: mw.NewRateLimit(redisCache, 60),

		HealthHandler: healthHandler(pgStore, redisCache),
		MediaHandler:  http.StripPrefix("/media", http.FileServer(http.Dir(cfg.Storage.Dir))),

		CreateSummaryHandler: handler.NewCreateSummaryHandler(admission),
		GetSummaryHandler:    handler.NewGetSummaryHandler(admission),
		RetrySummaryHandler:  handler.NewRetrySummaryHandler(admission),
		RequestAudioHandler:  handler.NewRequestAudioHandler(admission),
		SummaryEventsHandler: handler.NewSummaryEventsHandler(admission, bus),
	}

	router := api.NewRouter(deps)

	// 10. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE streams stay open indefinitely
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	// Wait for shutdown signal, consumer failure, or server error
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// healthHandler checks database and cache connectivity.
func healthHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		degraded := checks["database"] != "ok" || checks["cache"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
