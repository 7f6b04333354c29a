package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/apachehub/deudacero/internal/auth"
	"github.com/apachehub/deudacero/internal/client"
	"github.com/apachehub/deudacero/internal/config"
	"github.com/apachehub/deudacero/internal/events"
	"github.com/apachehub/deudacero/internal/metrics"
	"github.com/apachehub/deudacero/internal/server"
	"github.com/apachehub/deudacero/internal/service"
	"github.com/apachehub/deudacero/internal/storage/sqlite"
	"github.com/apachehub/deudacero/pkg/logging"
)

func main() {
	// Missing .env is fine; config falls back to process env.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logFormat := cfg.LogFormat
	if cfg.IsProduction() {
		logFormat = "json"
	}
	logger := logging.Setup(logFormat)

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	logger.Info("storage initialized", "database", cfg.DBPath)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	backend := client.New(cfg.BackendURL, cfg.BackendToken, cfg.BackendTimeout)
	balances := service.NewBalanceService(backend, store, m, logger, cfg.RefreshTimeout)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTDuration)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AMQPURL != "" {
		listener, err := events.NewListener(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, balances, logger)
		if err != nil {
			logger.Error("failed to connect event listener", "error", err)
			os.Exit(1)
		}
		defer listener.Close()
		go func() {
			if err := listener.Consume(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("event listener stopped", "error", err)
				stop()
			}
		}()
	} else {
		logger.Info("event listener disabled, refreshes are HTTP-triggered only")
	}

	srv := server.New(balances, jwtManager, registry, logger)
	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "address", cfg.HTTPAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}
