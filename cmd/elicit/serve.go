package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/aretw0/elicit/internal/config"
	elicithttp "github.com/aretw0/elicit/pkg/adapters/http"
	"github.com/aretw0/elicit/pkg/adapters/redis"
	"github.com/aretw0/elicit/pkg/observability"
	"github.com/aretw0/elicit/pkg/workflow"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Serve exposes sessions over a JSON REST API: create, resume, inspect,
list and delete, plus /health and Prometheus /metrics. With the redis
backend, session locking is distributed so multiple replicas can share
the store.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveListen != "" {
		cfg.Listen = serveListen
	}
	logger := newLogger(cfg)

	store, cleanup, err := openStore(cfg)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer func() { _ = cleanup() }()
	}

	engineOpts := []workflow.Option{
		workflow.WithStepHook(observability.NewStepMetrics(prometheus.DefaultRegisterer).Hook()),
	}
	// Multi-replica deployments on redis get distributed session locks.
	if cfg.Store.Backend == config.BackendRedis {
		client := backend.NewClient(&backend.Options{
			Addr:     cfg.Store.Redis.Address,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		defer func() { _ = client.Close() }()
		engineOpts = append(engineOpts, workflow.WithLocker(redis.NewLocker(client, "elicit:")))
	}

	engine, err := newEngine(cfg, store, logger, engineOpts...)
	if err != nil {
		return err
	}

	handler := elicithttp.NewHandler(engine, engine.Sessions(), elicithttp.WithLogger(logger))
	server := &http.Server{
		Addr:    cfg.Listen,
		Handler: handler,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "address", cfg.Listen, "backend", cfg.Store.Backend)
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		logger.Info("shutdown signal received")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}
