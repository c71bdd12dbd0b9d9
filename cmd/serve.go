package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	appLogger "github.com/FACorreiaa/go-municipio-insights/app/logger"
	appMiddleware "github.com/FACorreiaa/go-municipio-insights/app/middleware"
	"github.com/FACorreiaa/go-municipio-insights/app/tracer"
	"github.com/FACorreiaa/go-municipio-insights/config"
	"github.com/FACorreiaa/go-municipio-insights/internal/container"
	"github.com/FACorreiaa/go-municipio-insights/internal/router"
)

const serviceName = "municipio-insights"

var (
	servePort      string
	allowedOrigins []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the municipality selection API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("port") {
			servePort = cfg.Server.HTTPPort
		}

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if cfg.Handlers.Prometheus.Enabled {
			shutdown, err := tracer.InitTracingAndMetrics(serviceName, cfg.Handlers.Prometheus.Port, logger)
			if err != nil {
				return fmt.Errorf("initializing metrics: %w", err)
			}
			defer func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				if err := shutdown(shutdownCtx); err != nil {
					logger.Error("Failed to flush telemetry", slog.Any("error", err))
				}
			}()
		}

		c, err := container.NewContainer(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("building container: %w", err)
		}
		defer c.Close()

		srv := &http.Server{
			Addr:         fmt.Sprintf(":%s", servePort),
			Handler:      newServerHandler(c),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: requestTimeout(cfg) + 5*time.Second,
			IdleTimeout:  120 * time.Second,
			ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
		}

		serveErr := make(chan error, 1)
		go func() {
			logger.Info("Starting HTTP server", slog.String("address", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()

		select {
		case err := <-serveErr:
			if err != nil {
				return fmt.Errorf("http server: %w", err)
			}
		case <-ctx.Done():
		}

		logger.Info("Shutdown signal received, starting graceful shutdown...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server graceful shutdown failed", slog.Any("error", err))
			return err
		}
		logger.Info("HTTP server gracefully stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "8000", "Port to listen on")
	serveCmd.Flags().StringSliceVar(&allowedOrigins, "allowed-origin", nil, "CORS origin allowed to call the API (repeatable)")
	rootCmd.AddCommand(serveCmd)
}

func requestTimeout(cfg *config.Config) time.Duration {
	if cfg != nil && cfg.Server.Timeout > 0 {
		return cfg.Server.Timeout
	}
	return 60 * time.Second
}

func newServerHandler(c *container.Container) http.Handler {
	api := router.SetupRouter(&router.Config{
		CityHandler:      c.CityHandler,
		SelectionHandler: c.SelectionHandler,
		ReportHandler:    c.ReportHandler,
		SessionAuth:      appMiddleware.SessionAuth([]byte(c.Config.Session.JWTSecret)),
		AllowedOrigins:   allowedOrigins,
	})

	r := chi.NewMux()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appLogger.StructuredLogger(c.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(middleware.Timeout(requestTimeout(c.Config)))
	r.Use(middleware.Compress(5, "application/json"))
	r.Mount("/", api)
	return r
}
