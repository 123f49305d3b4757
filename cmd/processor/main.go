package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"swift-gateway/internal/api"
	"swift-gateway/internal/config"
	"swift-gateway/internal/observability"
	"swift-gateway/internal/pipeline"
	"swift-gateway/internal/queue"
	"swift-gateway/internal/store"
)

func main() {
	cfg := config.Load()
	observability.InitLogger(cfg.Logging.Level)
	appLog := observability.WithComponent("processor")

	if err := cfg.Validate(); err != nil {
		appLog.WithError(err).Fatal("invalid configuration")
	}

	zlog, err := zap.NewProduction()
	if err != nil {
		appLog.WithError(err).Fatal("failed to build logger")
	}
	defer zlog.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queues, err := queue.NewAdapter(queue.Config{
		Backend:        cfg.Queue.Backend,
		Brokers:        cfg.Queue.KafkaBrokers,
		GroupID:        cfg.Queue.KafkaGroupID,
		RedisURL:       cfg.Queue.RedisURL,
		ReceiveMaxWait: cfg.Queue.ReceiveMaxWait,
	}, zlog)
	if err != nil {
		appLog.WithError(err).Fatal("failed to create queue adapter")
	}
	defer queues.Close()

	var messageStore store.MessageStore
	if cfg.Store.DatabaseURL != "" {
		pool, err := store.NewPostgresPool(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			appLog.WithError(err).Fatal("failed to connect to postgres")
		}
		defer pool.Close()

		pg := store.NewPostgresStore(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			appLog.WithError(err).Fatal("failed to ensure schema")
		}
		messageStore = pg
	} else {
		appLog.Warn("DATABASE_URL not set, using in-memory message store")
		messageStore = store.NewMemoryStore()
	}

	metrics := observability.NewInMemoryMetrics()
	p := pipeline.New(pipeline.Config{
		InputQueue:      cfg.Pipeline.InputQueue,
		CompletedQueue:  cfg.Pipeline.CompletedQueue,
		DeadLetterQueue: cfg.Pipeline.DeadLetterQueue,
		MaxRetries:      cfg.Pipeline.MaxRetries,
		BaseBackoff:     cfg.Pipeline.BaseBackoff,
		MaxBackoff:      cfg.Pipeline.MaxBackoff,
		MaxConcurrent:   cfg.Pipeline.MaxConcurrent,
		PollInterval:    cfg.Pipeline.PollInterval,
		ProcessTimeout:  cfg.Pipeline.ProcessTimeout,
	}, queues, messageStore, metrics, zlog)

	srv := &http.Server{
		Addr:    ":" + cfg.API.Port,
		Handler: api.Routes(api.NewHandlers(p, messageStore, queues)),
	}
	go func() {
		appLog.WithField("port", cfg.API.Port).Info("admin api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.WithError(err).Error("admin api stopped")
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		appLog.WithField("signal", sig.String()).Info("shutdown signal received")
		cancel()
	}()

	appLog.WithFields(map[string]interface{}{
		"backend":     cfg.Queue.Backend,
		"input_queue": cfg.Pipeline.InputQueue,
	}).Info("processor started")

	if err := p.Run(ctx); err != nil {
		appLog.WithError(err).Error("pipeline exited with error")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.WithError(err).Warn("admin api shutdown timed out")
	}
	appLog.Info("processor stopped")
}
