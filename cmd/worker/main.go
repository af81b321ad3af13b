package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/felixgeelhaar/gritline/internal/app"
	"github.com/felixgeelhaar/gritline/internal/grit/application/subscribers"
	"github.com/felixgeelhaar/gritline/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/gritline/pkg/config"
	"github.com/felixgeelhaar/gritline/pkg/observability"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		observability.LoggerForEnv("development", "", os.Stdout).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.LoggerForEnv(cfg.AppEnv, cfg.LogLevel, os.Stdout)
	logger.Info("starting gritline worker")

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if cfg.RabbitMQURL == "" {
		logger.Error("RABBITMQ_URL is required for the worker")
		os.Exit(1)
	}

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	// Score events from every process land on one queue; the worker drops
	// cached scores and warms them again.
	consumer, err := eventbus.NewRabbitMQConsumer(eventbus.RabbitMQConsumerConfig{
		URL:       cfg.RabbitMQURL,
		QueueName: cfg.QueueName,
		Logger:    logger,
	}, eventbus.NewConsumerRegistry(logger).WithMetrics(container.Metrics))
	if err != nil {
		logger.Error("failed to connect consumer", "error", err)
		container.Close()
		os.Exit(1)
	}
	defer consumer.Close()
	consumer.RegisterConsumer(subscribers.NewScoreSubscriber(container.ScoreCache, true, logger))
	container.Health.Register("rabbitmq_consumer", observability.RabbitMQHealthChecker(consumer.Check))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := consumer.Start(gctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, eventbus.ErrConsumerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		container.RunPruner(gctx, cfg.PruneInterval)
		return nil
	})

	if cfg.WorkerHealthAddr != "" {
		healthSrv := &http.Server{
			Addr:              cfg.WorkerHealthAddr,
			Handler:           healthMux(container),
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			logger.Info("health server starting", "addr", cfg.WorkerHealthAddr)
			if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := healthSrv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("health server shutdown error", "error", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("worker stopped with error", "error", err)
		container.Close()
		os.Exit(1)
	}
	logger.Info("worker stopped")
}

func healthMux(container *app.Container) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":   "ok",
			"counters": container.Metrics.Counters(),
		})
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		health := container.Health.GetOverallHealth(checkCtx)
		w.Header().Set("Content-Type", "application/json")
		if health.Status == observability.HealthStatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(health)
	})

	return mux
}
