// Command exchange runs one trading session: it loads the client
// roster and configuration, drives the session lifecycle over a
// RabbitMQ transport, and exposes an admin HTTP surface for monitoring.
// Structured the way the teacher's cmd/miniexchange/main.go wires its
// dependencies, extended with a cobra command tree for the serve and
// healthcheck entry points (spec.md §6.4/6.5).
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

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/nutc-exchange/core/internal/adminapi"
	"github.com/nutc-exchange/core/internal/clients"
	"github.com/nutc-exchange/core/internal/config"
	"github.com/nutc-exchange/core/internal/domain"
	"github.com/nutc-exchange/core/internal/engine"
	"github.com/nutc-exchange/core/internal/ledger"
	"github.com/nutc-exchange/core/internal/metrics"
	"github.com/nutc-exchange/core/internal/session"
	"github.com/nutc-exchange/core/internal/transport"
)

func main() {
	root := &cobra.Command{
		Use:   "exchange",
		Short: "Run a price-time-priority exchange trading session",
	}
	root.AddCommand(serveCmd(), healthcheckCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Load the client roster and run the session to completion",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func healthcheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "healthcheck",
		Short: "Probe a running instance's /healthz endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			url := fmt.Sprintf("http://localhost:%d/healthz", cfg.AdminPort)
			resp, err := http.Get(url)
			if err != nil || resp.StatusCode != http.StatusOK {
				os.Exit(1)
			}
			return nil
		},
	}
}

func serve() error {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		return err
	}

	logger := newLogger(cfg.LogLevel).With(slog.String("session_id", uuid.New().String()))
	slog.SetDefault(logger)

	roster, err := clients.Load(cfg.ClientsPath)
	if err != nil {
		logger.Error("failed to load client registry", slog.String("error", err.Error()))
		return err
	}

	startingCapital, err := domain.ToMinorUnits(cfg.StartingCapital)
	if err != nil {
		logger.Error("invalid starting capital", slog.String("error", err.Error()))
		return err
	}

	l := ledger.New(cfg.ShortsAllowed)
	for _, id := range roster {
		l.AddClient(id, startingCapital)
	}
	logger.Info("client registry loaded", slog.Int("count", len(roster)))

	tickers := domain.NewTickerRegistry(nil)
	registry := engine.NewRegistry(l, tickers)

	metricsReg := prometheus.NewRegistry()
	m := metrics.New(metricsReg)

	tr, err := transport.Dial(transport.Config{
		Host:             cfg.TransportHost,
		Port:             cfg.TransportPort,
		User:             cfg.TransportUser,
		Pass:             cfg.TransportPass,
		MarketOrderQueue: cfg.TransportMarketOrderQueue,
		UpdatesExchange:  cfg.TransportUpdatesExchange,
	})
	if err != nil {
		logger.Error("failed to connect to transport", slog.String("error", err.Error()))
		return err
	}
	defer tr.Close()

	controller := session.New(tr, l, registry, cfg.ExpectedClients, logger, m)

	router := adminapi.NewRouter(registry, l, metricsReg, logger)
	adminSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.AdminPort),
		Handler: router,
	}
	go func() {
		logger.Info("admin server starting", slog.String("addr", adminSrv.Addr))
		if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("admin server error", slog.String("error", err.Error()))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	runErr := make(chan error, 1)
	go func() { runErr <- controller.Run(ctx) }()

	var sessionErr error
	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		cancel()
		sessionErr = <-runErr
	case sessionErr = <-runErr:
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := adminSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("admin server shutdown error", slog.String("error", err.Error()))
	}

	if sessionErr != nil {
		logger.Error("session ended with error", slog.String("error", sessionErr.Error()))
		return sessionErr
	}
	logger.Info("session ended cleanly")
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
