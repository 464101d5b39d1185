package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/CyberwizD/Distributed-Notification-System/services/push_relay/internal/auth"
	"github.com/CyberwizD/Distributed-Notification-System/services/push_relay/internal/config"
	"github.com/CyberwizD/Distributed-Notification-System/services/push_relay/internal/routes"
	"github.com/CyberwizD/Distributed-Notification-System/services/push_relay/internal/services"
	"github.com/CyberwizD/Distributed-Notification-System/services/push_relay/pkg/logger"
	"github.com/CyberwizD/Distributed-Notification-System/services/push_relay/pkg/metrics"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg := config.Load()

	logr := logger.New(cfg.LogLevel, cfg.LogFormat).With(slog.String("app", cfg.AppName))
	logr.Info("starting push relay", slog.String("port", cfg.HTTPPort))
	for _, w := range cfg.Warnings() {
		logr.Warn("configuration incomplete", slog.String("detail", w))
	}

	metricsCollector := metrics.New()
	provider := services.NewWebPushProvider(cfg.PushTimeout, logr)
	forwarder := services.NewForwarder(provider, cfg.Vapid, metricsCollector, logr)

	handler := routes.NewRouter(routes.Dependencies{
		Auth:      auth.New(cfg.AuthToken),
		Forwarder: forwarder,
		Metrics:   metricsCollector,
		Logger:    logr,
	})

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logr.Error("http server error", slog.Any("error", err))
			return err
		}
	case <-ctx.Done():
	}

	shutdownHTTP(srv, cfg.ShutdownTimeout, logr)
	logr.Info("push relay stopped")
	return nil
}

func shutdownHTTP(srv *http.Server, timeout time.Duration, logr *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("failed to shutdown http server", slog.Any("error", err))
	}
}
